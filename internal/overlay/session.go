package overlay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"campus_wayfinder/internal/geo"
	"campus_wayfinder/internal/geocode"
)

var (
	ErrUnknownAnchor   = errors.New("overlay: unknown anchor")
	ErrInvalidLocation = errors.New("overlay: location out of range")
)

// Anchor names a draggable point on the alignment map.
type Anchor string

const (
	AnchorLobby       Anchor = "lobby"
	AnchorParking     Anchor = "parking"
	AnchorDropOff     Anchor = "drop_off"
	AnchorTopLeft     Anchor = "overlay_top_left"
	AnchorBottomRight Anchor = "overlay_bottom_right"
)

// Anchors lists every anchor in display order.
var Anchors = []Anchor{AnchorLobby, AnchorParking, AnchorDropOff, AnchorTopLeft, AnchorBottomRight}

// ParseAnchor validates an anchor name.
func ParseAnchor(s string) (Anchor, error) {
	for _, a := range Anchors {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAnchor, s)
}

func (a Anchor) isCorner() bool {
	return a == AnchorTopLeft || a == AnchorBottomRight
}

// Location is an anchor's coordinate plus its street address.
type Location struct {
	Point   geo.Point `json:"point"`
	Address string    `json:"address"`
}

// Draft is what a commit hands to storage.
type Draft struct {
	SiteID    uint
	Overlay   Overlay
	Locations map[Anchor]Location
}

// AnchorView is the client-facing state of one anchor.
type AnchorView struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	Pending   bool    `json:"pending"`
	Failed    bool    `json:"failed"`
}

// View is a read-only snapshot of a session.
type View struct {
	ID              string                `json:"id"`
	SiteID          uint                  `json:"site_id"`
	State           string                `json:"state"`
	HasImage        bool                  `json:"has_image"`
	ContentType     string                `json:"content_type,omitempty"`
	RotationDegrees float64               `json:"rotation_degrees"`
	TopLeft         *geo.Point            `json:"top_left,omitempty"`
	BottomRight     *geo.Point            `json:"bottom_right,omitempty"`
	Anchors         map[Anchor]AnchorView `json:"anchors"`
}

// Session is one operator's in-progress alignment of a site's overlay and
// anchors. Edits apply to the working copy; Commit persists it and makes it
// the rollback point, Cancel restores the rollback point.
type Session struct {
	ID        string
	SiteID    uint
	CreatedAt time.Time

	mu                 sync.Mutex
	committed          Overlay
	committedLocations map[Anchor]Location
	current            Overlay
	points             map[Anchor]geo.Point
	resolver           *geocode.Resolver
}

// NewSession opens a session over the committed overlay and site locations.
func NewSession(siteID uint, committed Overlay, locations map[Anchor]Location, g geocode.Geocoder) *Session {
	s := &Session{
		ID:                 uuid.NewString(),
		SiteID:             siteID,
		CreatedAt:          time.Now(),
		committed:          committed.Clone(),
		committedLocations: copyLocations(locations),
	}
	s.current = s.committed.Clone()
	s.points = s.committedPoints()
	s.resolver = geocode.NewResolver(g, s.knownAddresses())
	return s
}

// SetImage replaces the raster. Rotation resets and the box is cleared.
func (s *Session) SetImage(data []byte) error {
	_, contentType, err := Decode(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Overlay{Image: data, ContentType: contentType}
	delete(s.points, AnchorTopLeft)
	delete(s.points, AnchorBottomRight)
	return nil
}

// ClearImage drops the image together with its rotation and box.
func (s *Session) ClearImage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Overlay{}
	delete(s.points, AnchorTopLeft)
	delete(s.points, AnchorBottomRight)
}

// Rotate turns the image by one of the supported steps.
func (s *Session) Rotate(delta float64) (float64, error) {
	if !IsSupportedStep(delta) {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedRotation, delta)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.State() == Empty {
		return 0, ErrNoImage
	}
	s.current.RotationDegrees = NormalizeDegrees(s.current.RotationDegrees + delta)
	return s.current.RotationDegrees, nil
}

// RectangleChanged records the box after the operator drags or resizes it.
func (s *Session) RectangleChanged(ctx context.Context, a, b geo.Point) error {
	if !a.Valid() || !b.Valid() {
		return ErrInvalidLocation
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.State() == Empty {
		return ErrNoImage
	}
	tl, br := NormalizeCorners(a, b)
	s.setBox(ctx, tl, br)
	return nil
}

// PlaceDefaultBounds puts a starting box around the lobby if the image has
// none yet.
func (s *Session) PlaceDefaultBounds(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.current.State() {
	case Empty:
		return ErrNoImage
	case Aligned:
		return nil
	}
	tl, br := DefaultBounds(s.points[AnchorLobby])
	s.setBox(ctx, tl, br)
	return nil
}

func (s *Session) setBox(ctx context.Context, tl, br geo.Point) {
	s.current.TopLeft = &tl
	s.current.BottomRight = &br
	s.points[AnchorTopLeft] = tl
	s.points[AnchorBottomRight] = br
	s.resolver.Resolve(ctx, string(AnchorTopLeft), tl)
	s.resolver.Resolve(ctx, string(AnchorBottomRight), br)
}

// AnchorMoved accepts the new coordinate immediately and resolves its
// address in the background.
func (s *Session) AnchorMoved(ctx context.Context, anchor Anchor, p geo.Point) error {
	if !p.Valid() {
		return ErrInvalidLocation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if anchor.isCorner() {
		switch s.current.State() {
		case Empty:
			return ErrNoImage
		case ImageSet:
			return ErrIncompleteOverlay
		}
		other := *s.current.BottomRight
		if anchor == AnchorBottomRight {
			other = *s.current.TopLeft
		}
		tl, br := NormalizeCorners(p, other)
		s.setBox(ctx, tl, br)
		return nil
	}

	s.points[anchor] = p
	s.resolver.Resolve(ctx, string(anchor), p)
	return nil
}

// Commit validates the working copy, hands it to persist and, if that
// succeeds, makes it the new rollback point. Pending address lookups do not
// hold the commit back; anchors still loading keep their last known address.
func (s *Session) Commit(ctx context.Context, persist func(context.Context, Draft) error) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.current.Validate(); err != nil {
		return Draft{}, err
	}

	resolved := s.resolver.Snapshot()
	locations := make(map[Anchor]Location, len(s.points))
	for anchor, p := range s.points {
		addr := s.committedLocations[anchor].Address
		if res, ok := resolved[string(anchor)]; ok && res.Address != geocode.Placeholder {
			addr = res.Address
		}
		locations[anchor] = Location{Point: p, Address: addr}
	}

	draft := Draft{SiteID: s.SiteID, Overlay: s.current.Clone(), Locations: locations}
	if err := persist(ctx, draft); err != nil {
		return Draft{}, err
	}

	s.committed = draft.Overlay.Clone()
	s.committedLocations = copyLocations(locations)
	logrus.WithFields(logrus.Fields{
		"session": s.ID,
		"site_id": s.SiteID,
		"state":   s.committed.State().String(),
	}).Info("overlay alignment committed")
	return draft, nil
}

// Cancel discards every edit since the last commit. Lookups still in flight
// are ignored when they return.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.committed.Clone()
	s.points = s.committedPoints()
	s.resolver.Reset(s.knownAddresses())
}

// Rendered returns the working image rotated and encoded as PNG.
func (s *Session) Rendered() ([]byte, error) {
	s.mu.Lock()
	img, deg := s.current.Image, s.current.RotationDegrees
	s.mu.Unlock()
	if len(img) == 0 {
		return nil, ErrNoImage
	}
	return Render(img, deg)
}

// Current returns a copy of the working overlay.
func (s *Session) Current() Overlay {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// View snapshots the session for clients.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved := s.resolver.Snapshot()
	anchors := make(map[Anchor]AnchorView, len(s.points))
	for anchor, p := range s.points {
		res, ok := resolved[string(anchor)]
		if !ok || res.Address == "" {
			res.Address = geocode.Placeholder
		}
		anchors[anchor] = AnchorView{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Address:   res.Address,
			Pending:   res.Pending,
			Failed:    res.Failed,
		}
	}

	cur := s.current.Clone()
	return View{
		ID:              s.ID,
		SiteID:          s.SiteID,
		State:           cur.State().String(),
		HasImage:        len(cur.Image) > 0,
		ContentType:     cur.ContentType,
		RotationDegrees: cur.RotationDegrees,
		TopLeft:         cur.TopLeft,
		BottomRight:     cur.BottomRight,
		Anchors:         anchors,
	}
}

// Wait blocks until outstanding address lookups finish.
func (s *Session) Wait(ctx context.Context) error {
	return s.resolver.Wait(ctx)
}

func (s *Session) committedPoints() map[Anchor]geo.Point {
	points := make(map[Anchor]geo.Point, len(Anchors))
	for anchor, loc := range s.committedLocations {
		points[anchor] = loc.Point
	}
	delete(points, AnchorTopLeft)
	delete(points, AnchorBottomRight)
	if s.committed.TopLeft != nil && s.committed.BottomRight != nil {
		points[AnchorTopLeft] = *s.committed.TopLeft
		points[AnchorBottomRight] = *s.committed.BottomRight
	}
	return points
}

func (s *Session) knownAddresses() map[string]string {
	known := make(map[string]string, len(s.committedLocations))
	for anchor, loc := range s.committedLocations {
		if loc.Address != "" {
			known[string(anchor)] = loc.Address
		}
	}
	return known
}

func copyLocations(in map[Anchor]Location) map[Anchor]Location {
	out := make(map[Anchor]Location, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
