package geocode

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"campus_wayfinder/internal/geo"
)

// Placeholder is shown for an anchor whose address has never been resolved.
const Placeholder = "Loading..."

const defaultLookupTimeout = 10 * time.Second

// Resolution is the address state of one anchor.
type Resolution struct {
	Address string `json:"address"`
	Pending bool   `json:"pending"`
	Failed  bool   `json:"failed"`
}

// Resolver runs one independent reverse-geocode lookup per anchor key.
// A result is applied only if it belongs to the current generation and is
// the latest lookup issued for its key; everything else is stale and dropped.
// A failed lookup leaves the previous address in place.
type Resolver struct {
	geocoder Geocoder
	timeout  time.Duration

	mu         sync.Mutex
	generation uint64
	seq        map[string]uint64
	state      map[string]Resolution

	wg sync.WaitGroup
}

// NewResolver seeds the resolver with already-known addresses.
func NewResolver(g Geocoder, known map[string]string) *Resolver {
	r := &Resolver{geocoder: g, timeout: defaultLookupTimeout}
	r.reset(known)
	return r
}

// SetTimeout bounds each provider call.
func (r *Resolver) SetTimeout(d time.Duration) {
	r.mu.Lock()
	r.timeout = d
	r.mu.Unlock()
}

// Resolve starts a lookup for key at p and returns immediately. The lookup
// outlives ctx's cancellation but keeps its values.
func (r *Resolver) Resolve(ctx context.Context, key string, p geo.Point) {
	r.mu.Lock()
	r.seq[key]++
	gen, seq, timeout := r.generation, r.seq[key], r.timeout

	current, ok := r.state[key]
	if !ok || current.Address == "" {
		current.Address = Placeholder
	}
	current.Pending = true
	current.Failed = false
	r.state[key] = current
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		address, err := r.geocoder.ReverseGeocode(lookupCtx, p)
		r.apply(key, gen, seq, address, err)
	}()
}

func (r *Resolver) apply(key string, gen, seq uint64, address string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation || seq != r.seq[key] {
		logrus.WithFields(logrus.Fields{
			"anchor":     key,
			"generation": gen,
		}).Debug("discarding stale geocode result")
		return
	}

	current := r.state[key]
	current.Pending = false
	if err != nil || address == "" {
		current.Failed = true
		logrus.WithError(err).WithField("anchor", key).Warn("reverse geocode failed, keeping previous address")
	} else {
		current.Address = address
		current.Failed = false
	}
	r.state[key] = current
}

// Resolution returns the current address state for key.
func (r *Resolver) Resolution(key string) (Resolution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.state[key]
	return res, ok
}

// Snapshot copies every anchor's current state.
func (r *Resolver) Snapshot() map[string]Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Resolution, len(r.state))
	for k, v := range r.state {
		out[k] = v
	}
	return out
}

// Reset starts a new generation: results of lookups already in flight are
// ignored when they arrive.
func (r *Resolver) Reset(known map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset(known)
}

func (r *Resolver) reset(known map[string]string) {
	r.generation++
	r.seq = make(map[string]uint64)
	r.state = make(map[string]Resolution, len(known))
	for k, addr := range known {
		r.state[k] = Resolution{Address: addr}
	}
}

// Wait blocks until every issued lookup has finished or ctx is done.
func (r *Resolver) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
