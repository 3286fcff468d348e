package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus_wayfinder/internal/geo"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pt(lat, lng float64) *geo.Point {
	return &geo.Point{Latitude: lat, Longitude: lng}
}

func TestOverlayState(t *testing.T) {
	assert.Equal(t, Empty, Overlay{}.State())
	assert.Equal(t, ImageSet, Overlay{Image: []byte{1}}.State())
	assert.Equal(t, ImageSet, Overlay{Image: []byte{1}, TopLeft: pt(1, 1)}.State())
	assert.Equal(t, Aligned, Overlay{Image: []byte{1}, TopLeft: pt(1, 1), BottomRight: pt(0, 0)}.State())
}

func TestOverlayValidate(t *testing.T) {
	assert.NoError(t, Overlay{}.Validate())
	assert.ErrorIs(t, Overlay{Image: []byte{1}}.Validate(), ErrIncompleteOverlay)
	assert.ErrorIs(t, Overlay{TopLeft: pt(1, 1), BottomRight: pt(0, 0)}.Validate(), ErrNoImage)
	assert.ErrorIs(t, Overlay{Image: []byte{1}, TopLeft: pt(91, 1), BottomRight: pt(0, 0)}.Validate(), ErrInvalidCorner)
	assert.NoError(t, Overlay{Image: []byte{1}, TopLeft: pt(1, 1), BottomRight: pt(0, 0)}.Validate())
}

func TestOverlayCloneIsDeep(t *testing.T) {
	o := Overlay{Image: []byte{1}, TopLeft: pt(1, 1), BottomRight: pt(0, 0)}
	c := o.Clone()
	c.TopLeft.Latitude = 5
	assert.Equal(t, 1.0, o.TopLeft.Latitude)
}

func TestNormalizeDegrees(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		90:   90,
		360:  0,
		-5:   355,
		-90:  270,
		405:  45,
		-720: 0,
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDegrees(in), "input %v", in)
	}
}

func TestIsSupportedStep(t *testing.T) {
	for _, d := range []float64{5, -5, 15, -15, 45, -45, 90, -90} {
		assert.True(t, IsSupportedStep(d), "%v", d)
	}
	for _, d := range []float64{0, 1, 30, 180, -180, 360} {
		assert.False(t, IsSupportedStep(d), "%v", d)
	}
}

func TestDefaultBounds(t *testing.T) {
	lobby := geo.Point{Latitude: 42.3364, Longitude: -71.1065}
	tl, br := DefaultBounds(lobby)

	assert.InDelta(t, 42.33665, tl.Latitude, 1e-9)
	assert.InDelta(t, -71.10625, tl.Longitude, 1e-9)
	assert.InDelta(t, 42.33615, br.Latitude, 1e-9)
	assert.InDelta(t, -71.10675, br.Longitude, 1e-9)

	c := Center(tl, br)
	assert.InDelta(t, lobby.Latitude, c.Latitude, 1e-9)
	assert.InDelta(t, lobby.Longitude, c.Longitude, 1e-9)
}

func TestNormalizeCorners(t *testing.T) {
	sw := geo.Point{Latitude: 42.30, Longitude: -71.20}
	ne := geo.Point{Latitude: 42.31, Longitude: -71.19}
	nw := geo.Point{Latitude: 42.31, Longitude: -71.20}
	se := geo.Point{Latitude: 42.30, Longitude: -71.19}

	for _, pair := range [][2]geo.Point{{sw, ne}, {ne, sw}, {nw, se}, {se, nw}} {
		tl, br := NormalizeCorners(pair[0], pair[1])
		assert.Equal(t, ne, tl)
		assert.Equal(t, sw, br)
	}
}

func TestRotatedSize(t *testing.T) {
	w, h := RotatedSize(40, 20, 90)
	assert.Equal(t, [2]int{20, 40}, [2]int{w, h})

	w, h = RotatedSize(40, 20, 180)
	assert.Equal(t, [2]int{40, 20}, [2]int{w, h})

	// 45°: (40+20)·√2/2 ≈ 42.43
	w, h = RotatedSize(40, 20, 45)
	assert.Equal(t, [2]int{42, 42}, [2]int{w, h})
}

func TestRotateImageQuarterTurnsAreExact(t *testing.T) {
	src, _, err := Decode(testPNG(t, 3, 2))
	require.NoError(t, err)

	r90 := RotateImage(src, 90)
	require.Equal(t, image.Rect(0, 0, 2, 3), r90.Bounds())
	// clockwise: the source's top-left pixel lands in the top-right corner
	assert.Equal(t, color.RGBAModel.Convert(src.At(0, 0)), r90.At(1, 0))
	assert.Equal(t, color.RGBAModel.Convert(src.At(2, 1)), r90.At(0, 2))

	r180 := RotateImage(src, 180)
	assert.Equal(t, color.RGBAModel.Convert(src.At(0, 0)), r180.At(2, 1))

	r270 := RotateImage(src, -90)
	require.Equal(t, image.Rect(0, 0, 2, 3), r270.Bounds())
	assert.Equal(t, color.RGBAModel.Convert(src.At(0, 0)), r270.At(0, 2))

	full := RotateImage(src, 360)
	assert.Equal(t, src.Bounds(), full.Bounds())
	assert.Equal(t, color.RGBAModel.Convert(src.At(2, 1)), full.At(2, 1))
}

func TestRotateImageArbitraryAngle(t *testing.T) {
	src, _, err := Decode(testPNG(t, 6, 6))
	require.NoError(t, err)

	out := RotateImage(src, 45)
	w, h := RotatedSize(6, 6, 45)
	assert.Equal(t, image.Rect(0, 0, w, h), out.Bounds())

	// corners of the enlarged canvas stay transparent
	_, _, _, a := out.At(0, 0).RGBA()
	assert.Zero(t, a)
	// the centre is covered by the source
	_, _, _, a = out.At(w/2, h/2).RGBA()
	assert.NotZero(t, a)
}

func TestRenderDerivesFromOriginal(t *testing.T) {
	orig := testPNG(t, 5, 3)

	twice, err := Render(orig, NormalizeDegrees(90+90))
	require.NoError(t, err)
	once, err := Render(orig, 180)
	require.NoError(t, err)
	assert.Equal(t, once, twice)

	_, err = Render([]byte("not an image"), 0)
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestDecode(t *testing.T) {
	_, ct, err := Decode(testPNG(t, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	_, _, err = Decode([]byte("GIF89a"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}
