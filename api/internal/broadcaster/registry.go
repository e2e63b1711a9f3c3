package broadcaster

import (
	"errors"
	"sort"
	"sync"
)

var ErrTooManyViewers = errors.New("too many viewers")

// Registry tracks the broadcasters of currently connected viewers.
type Registry struct {
	mu         sync.Mutex
	viewers    map[string]*Broadcaster
	maxViewers int
}

// NewRegistry creates a registry. maxViewers <= 0 means unlimited.
func NewRegistry(maxViewers int) *Registry {
	return &Registry{
		viewers:    make(map[string]*Broadcaster),
		maxViewers: maxViewers,
	}
}

func (r *Registry) Add(b *Broadcaster) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxViewers > 0 && len(r.viewers) >= r.maxViewers {
		return ErrTooManyViewers
	}

	r.viewers[b.ID()] = b

	return nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.viewers, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.viewers)
}

// Stats returns per-viewer stats ordered by connection time.
func (r *Registry) Stats() []Stats {
	r.mu.Lock()
	stats := make([]Stats, 0, len(r.viewers))
	for _, b := range r.viewers {
		stats = append(stats, b.Stats())
	}
	r.mu.Unlock()

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].ConnectedAt.Before(stats[j].ConnectedAt)
	})

	return stats
}
