package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Purgeable is the tag-facing side of a Cache.
type Purgeable interface {
	Name() string
	Tags() []string
	Purge()
	Sweep() int
}

// Bus carries tag invalidations between replicas.
type Bus interface {
	Publish(ctx context.Context, msg Invalidation) error
	Subscribe(ctx context.Context, handle func(Invalidation)) error
}

// Invalidation is one tag purge broadcast on the Bus.
type Invalidation struct {
	Origin string    `json:"origin"`
	Tag    string    `json:"tag"`
	At     time.Time `json:"at"`
}

// Registry tracks caches by tag.
type Registry struct {
	id  string
	bus Bus

	mu     sync.RWMutex
	caches []Purgeable
}

// NewRegistry builds a registry. bus may be nil for a single replica.
func NewRegistry(bus Bus) *Registry {
	return &Registry{id: uuid.NewString(), bus: bus}
}

func (r *Registry) Register(caches ...Purgeable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caches = append(r.caches, caches...)
}

// Invalidate purges every cache tagged with tag and tells the other
// replicas to do the same. A publish failure is logged; the local purge has
// already happened.
func (r *Registry) Invalidate(ctx context.Context, tag string) {
	r.purge(tag)

	if r.bus == nil {
		return
	}
	msg := Invalidation{Origin: r.id, Tag: tag, At: time.Now().UTC()}
	if err := r.bus.Publish(ctx, msg); err != nil {
		logrus.WithError(err).WithField("tag", tag).Warn("cache invalidation not broadcast")
	}
}

// Listen applies invalidations published by other replicas until ctx ends.
func (r *Registry) Listen(ctx context.Context) error {
	if r.bus == nil {
		return nil
	}
	return r.bus.Subscribe(ctx, func(msg Invalidation) {
		if msg.Origin == r.id {
			return
		}
		logrus.WithFields(logrus.Fields{
			"tag":    msg.Tag,
			"origin": msg.Origin,
		}).Debug("remote cache invalidation")
		r.purge(msg.Tag)
	})
}

// Janitor sweeps expired entries every interval until ctx ends.
func (r *Registry) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.RLock()
			for _, c := range r.caches {
				if n := c.Sweep(); n > 0 {
					logrus.WithFields(logrus.Fields{"cache": c.Name(), "expired": n}).Debug("cache sweep")
				}
			}
			r.mu.RUnlock()
		}
	}
}

func (r *Registry) purge(tag string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.caches {
		if slices.Contains(c.Tags(), tag) {
			c.Purge()
			logrus.WithFields(logrus.Fields{"cache": c.Name(), "tag": tag}).Debug("cache purged")
		}
	}
}
