package geo

import (
	"sort"
	"sync"

	"github.com/dhconnelly/rtreego"
)

const (
	dimensions  = 2
	minChildren = 4
	maxChildren = 16
	tolerance   = 0.00001
)

// Place is anything the index can hold: an ID and a location.
type Place struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Location Point  `json:"location"`
}

// Ranked is a place together with its distance from the query point.
type Ranked struct {
	Place
	DistanceMeters float64   `json:"distance_m"`
	Proximity      Proximity `json:"proximity"`
}

type spatialPlace struct {
	place Place
	rect  rtreego.Rect
}

func (sp *spatialPlace) Bounds() rtreego.Rect {
	return sp.rect
}

// SiteIndex is a thread-safe R-tree over place locations.
type SiteIndex struct {
	mu    sync.RWMutex
	tree  *rtreego.Rtree
	count int
}

// NewSiteIndex builds an index over places.
func NewSiteIndex(places []Place) *SiteIndex {
	idx := &SiteIndex{}
	idx.Rebuild(places)
	return idx
}

// Rebuild replaces the index contents.
func (s *SiteIndex) Rebuild(places []Place) {
	tree := rtreego.NewTree(dimensions, minChildren, maxChildren)
	for _, p := range places {
		rp := rtreego.Point{p.Location.Latitude, p.Location.Longitude}
		tree.Insert(&spatialPlace{place: p, rect: rp.ToRect(tolerance)})
	}

	s.mu.Lock()
	s.tree = tree
	s.count = len(places)
	s.mu.Unlock()
}

// Size returns the number of indexed places.
func (s *SiteIndex) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Nearest returns up to k places ordered by great-circle distance from p.
// The tree ranks candidates in degree space, so it is asked for extra
// candidates before re-ranking by Haversine distance.
func (s *SiteIndex) Nearest(p Point, k int) []Ranked {
	if k <= 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.count == 0 {
		return nil
	}

	candidates := k * 3
	if candidates > s.count {
		candidates = s.count
	}

	results := s.tree.NearestNeighbors(candidates, rtreego.Point{p.Latitude, p.Longitude})
	ranked := make([]Ranked, 0, len(results))
	for _, r := range results {
		item, ok := r.(*spatialPlace)
		if !ok || item == nil {
			continue
		}
		d := HaversineDistanceMeters(p, item.place.Location)
		ranked = append(ranked, Ranked{Place: item.place, DistanceMeters: d, Proximity: ClassifyProximity(d)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceMeters < ranked[j].DistanceMeters
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
