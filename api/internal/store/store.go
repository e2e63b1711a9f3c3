// Package store holds the single most recent frame published by the camera.
//
// Store has exactly one mutator, Publish. Readers copy the current *entity.Frame
// pointer under a read lock and never hold the lock while doing I/O, so a slow
// viewer can neither block the publisher nor other viewers.
package store

import (
	"errors"
	"maps"
	"sync"
	"time"

	"camRelay/api/internal/entity"

	"github.com/google/uuid"
)

var ErrEmptyPayload = errors.New("empty payload")

type Store struct {
	mu      sync.RWMutex
	current *entity.Frame
	seq     uint64

	// changed is closed and replaced by every Publish.
	changed chan struct{}

	now func() time.Time
}

func New() *Store {
	return &Store{
		changed: make(chan struct{}),
		now:     time.Now,
	}
}

// Publish replaces the current frame with a new one carrying the next sequence
// number. The caller must not modify payload afterwards. Metadata is copied.
func (s *Store) Publish(payload []byte, metadata map[string]string) (*entity.Frame, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	frame := &entity.Frame{
		FrameMeta: entity.FrameMeta{
			ID:          uuid.NewString(),
			Metadata:    copyMetadata(metadata),
			PublishedAt: s.now(),
		},
		Payload: payload,
	}

	s.mu.Lock()
	s.seq++
	frame.Sequence = s.seq
	s.current = frame
	changed := s.changed
	s.changed = make(chan struct{})
	s.mu.Unlock()

	close(changed)

	return frame, nil
}

// Snapshot returns the current frame, or false if nothing was published yet.
func (s *Store) Snapshot() (*entity.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current, s.current != nil
}

// Watch returns the current frame (nil before the first publish) together with
// a channel that is closed by the next Publish.
func (s *Store) Watch() (*entity.Frame, <-chan struct{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current, s.changed
}

// Sequence returns the last assigned sequence number, 0 before the first publish.
func (s *Store) Sequence() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.seq
}

func copyMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}

	return maps.Clone(metadata)
}
