// Package overlay aligns a floor-plan raster over the map: it tracks the
// image, its rotation and the geographic box it is drawn into.
package overlay

import (
	"errors"
	"math"

	"campus_wayfinder/internal/geo"
)

var (
	ErrNoImage             = errors.New("overlay: no image set")
	ErrIncompleteOverlay   = errors.New("overlay: image has no bounding box")
	ErrUnsupportedRotation = errors.New("overlay: unsupported rotation step")
	ErrInvalidImage        = errors.New("overlay: image is not a PNG or JPEG")
	ErrInvalidCorner       = errors.New("overlay: corner out of range")
)

// State is where an overlay sits in its alignment lifecycle.
type State int

const (
	Empty State = iota
	ImageSet
	Aligned
)

func (s State) String() string {
	switch s {
	case ImageSet:
		return "image_set"
	case Aligned:
		return "aligned"
	default:
		return "empty"
	}
}

// supportedSteps are the rotation deltas the alignment tool offers.
var supportedSteps = map[float64]bool{
	-90: true, -45: true, -15: true, -5: true,
	5: true, 15: true, 45: true, 90: true,
}

// IsSupportedStep reports whether delta is one of the offered rotation steps.
func IsSupportedStep(delta float64) bool {
	return supportedSteps[delta]
}

// Overlay is the value being edited. TopLeft is the north-east corner and
// BottomRight the south-west corner of an axis-aligned geographic box;
// rotation is baked into the rendered raster, never into the corners.
type Overlay struct {
	Image           []byte
	ContentType     string
	RotationDegrees float64
	TopLeft         *geo.Point
	BottomRight     *geo.Point
}

// State derives the lifecycle state from which fields are present.
func (o Overlay) State() State {
	if len(o.Image) == 0 {
		return Empty
	}
	if o.TopLeft == nil || o.BottomRight == nil {
		return ImageSet
	}
	return Aligned
}

// Validate rejects the partial shapes that must never be persisted.
func (o Overlay) Validate() error {
	if len(o.Image) == 0 {
		if o.TopLeft != nil || o.BottomRight != nil {
			return ErrNoImage
		}
		return nil
	}
	if o.TopLeft == nil || o.BottomRight == nil {
		return ErrIncompleteOverlay
	}
	if !o.TopLeft.Valid() || !o.BottomRight.Valid() {
		return ErrInvalidCorner
	}
	return nil
}

// Clone deep-copies the overlay. The image bytes are shared; they are never
// mutated in place.
func (o Overlay) Clone() Overlay {
	out := o
	if o.TopLeft != nil {
		tl := *o.TopLeft
		out.TopLeft = &tl
	}
	if o.BottomRight != nil {
		br := *o.BottomRight
		out.BottomRight = &br
	}
	return out
}

// NormalizeDegrees maps any angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg == 360 {
		return 0
	}
	return deg
}
