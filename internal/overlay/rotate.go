package overlay

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// RotatedSize is the bounding size of a w×h raster turned by deg degrees.
func RotatedSize(w, h int, deg float64) (int, int) {
	rad := NormalizeDegrees(deg) * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	nw := int(math.Round(float64(w)*cos + float64(h)*sin))
	nh := int(math.Round(float64(w)*sin + float64(h)*cos))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// RotateImage turns src clockwise by deg degrees into a new RGBA raster
// sized to fit. Quarter turns copy pixels exactly; other angles are
// resampled bilinearly over a transparent background.
func RotateImage(src image.Image, deg float64) *image.RGBA {
	deg = NormalizeDegrees(deg)
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	switch deg {
	case 0:
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	case 90, 180, 270:
		return rotateQuarter(src, int(deg))
	}

	nw, nh := RotatedSize(w, h, deg)
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))

	rad := deg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	ocx, ocy := float64(b.Min.X)+float64(w)/2, float64(b.Min.Y)+float64(h)/2
	ncx, ncy := float64(nw)/2, float64(nh)/2

	// maps source space onto destination space; y grows downwards so a
	// positive angle turns clockwise on screen
	m := f64.Aff3{
		cos, -sin, ncx - (cos*ocx - sin*ocy),
		sin, cos, ncy - (sin*ocx + cos*ocy),
	}
	draw.BiLinear.Transform(dst, m, src, b, draw.Over, nil)
	return dst
}

func rotateQuarter(src image.Image, deg int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst *image.RGBA
	if deg == 180 {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	}

	for sy := 0; sy < h; sy++ {
		for sx := 0; sx < w; sx++ {
			c := color.RGBAModel.Convert(src.At(b.Min.X+sx, b.Min.Y+sy))
			switch deg {
			case 90:
				dst.Set(h-1-sy, sx, c)
			case 180:
				dst.Set(w-1-sx, h-1-sy, c)
			case 270:
				dst.Set(sy, w-1-sx, c)
			}
		}
	}
	return dst
}

// Decode reads a PNG or JPEG raster and reports its content type.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", ErrInvalidImage
	}
	switch format {
	case "png":
		return img, "image/png", nil
	case "jpeg":
		return img, "image/jpeg", nil
	}
	return nil, "", ErrInvalidImage
}

// Render rotates the original image bytes by deg and encodes the result as
// PNG. It always starts from the original so repeated rotations never
// accumulate resampling loss.
func Render(original []byte, deg float64) ([]byte, error) {
	img, _, err := Decode(original)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, RotateImage(img, deg)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
