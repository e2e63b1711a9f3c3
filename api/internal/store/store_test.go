package store

import (
	"sync"
	"testing"
	"time"

	"camRelay/api/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotEmpty(t *testing.T) {
	s := New()

	frame, ok := s.Snapshot()
	assert.False(t, ok)
	assert.Nil(t, frame)
	assert.Zero(t, s.Sequence())
}

func TestPublishFirstFrame(t *testing.T) {
	s := New()
	payload := []byte{0xff, 0xd8, 0xff, 0xe0}

	published, err := s.Publish(payload, map[string]string{entity.MetaFPS: "5"})
	require.NoError(t, err)

	frame, ok := s.Snapshot()
	require.True(t, ok)
	assert.Same(t, published, frame)
	assert.Equal(t, payload, frame.Payload)
	assert.Equal(t, uint64(1), frame.Sequence)
	assert.Equal(t, "5", frame.Meta(entity.MetaFPS))
	assert.NotEmpty(t, frame.ID)
	assert.False(t, frame.PublishedAt.IsZero())
}

func TestPublishEmptyPayload(t *testing.T) {
	s := New()

	_, err := s.Publish([]byte("a"), nil)
	require.NoError(t, err)

	for _, payload := range [][]byte{nil, {}} {
		frame, err := s.Publish(payload, map[string]string{entity.MetaFPS: "30"})
		assert.ErrorIs(t, err, ErrEmptyPayload)
		assert.Nil(t, frame)
	}

	frame, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, []byte("a"), frame.Payload)
	assert.Equal(t, uint64(1), frame.Sequence)
	assert.Equal(t, uint64(1), s.Sequence())
}

func TestPublishSequenceIncrements(t *testing.T) {
	s := New()

	for i := 1; i <= 5; i++ {
		frame, err := s.Publish([]byte{byte(i)}, nil)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), frame.Sequence)
	}

	assert.Equal(t, uint64(5), s.Sequence())
}

func TestPublishCopiesMetadata(t *testing.T) {
	s := New()
	meta := map[string]string{entity.MetaQuality: "0.7"}

	_, err := s.Publish([]byte("a"), meta)
	require.NoError(t, err)

	meta[entity.MetaQuality] = "0.1"

	frame, _ := s.Snapshot()
	assert.Equal(t, "0.7", frame.Meta(entity.MetaQuality))
}

func TestWatchClosedByPublish(t *testing.T) {
	s := New()

	frame, changed := s.Watch()
	assert.Nil(t, frame)

	select {
	case <-changed:
		t.Fatal("changed closed before publish")
	default:
	}

	_, err := s.Publish([]byte("a"), nil)
	require.NoError(t, err)

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("changed not closed after publish")
	}

	frame, next := s.Watch()
	require.NotNil(t, frame)
	assert.Equal(t, uint64(1), frame.Sequence)
	assert.NotEqual(t, changed, next)
}

func TestConcurrentSnapshotsNonDecreasing(t *testing.T) {
	s := New()

	const (
		readers   = 8
		publishes = 2000
	)

	done := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var last uint64
			for {
				select {
				case <-done:
					return
				default:
				}

				frame, ok := s.Snapshot()
				if !ok {
					continue
				}

				if frame.Sequence < last {
					t.Errorf("sequence went backwards: %d after %d", frame.Sequence, last)
					return
				}
				// payload and sequence come from the same publish
				if int(frame.Payload[0]) != int(frame.Sequence%256) {
					t.Errorf("torn frame: payload %d, seq %d", frame.Payload[0], frame.Sequence)
					return
				}
				last = frame.Sequence
			}
		}()
	}

	for i := 1; i <= publishes; i++ {
		_, err := s.Publish([]byte{byte(i % 256)}, nil)
		require.NoError(t, err)
	}

	close(done)
	wg.Wait()

	assert.Equal(t, uint64(publishes), s.Sequence())
}

func TestConcurrentPublishersSerialized(t *testing.T) {
	s := New()

	const (
		writers = 4
		each    = 250
	)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				_, err := s.Publish([]byte("x"), nil)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	frame, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, uint64(writers*each), frame.Sequence)
}
