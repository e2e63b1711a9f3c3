package runner

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"camRelay/runner/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type sliceFramer struct {
	frames  []*entity.Frame
	pos     int
	stopped bool
}

func (f *sliceFramer) Start() error { return nil }

func (f *sliceFramer) Stop() error {
	f.stopped = true
	return nil
}

func (f *sliceFramer) Next() (*entity.Frame, error) {
	if f.pos >= len(f.frames) {
		return nil, io.EOF
	}
	f.pos++
	return f.frames[f.pos-1], nil
}

type fakeUploader struct {
	mu     sync.Mutex
	frames []*entity.Frame
	fail   map[int]bool
}

func (u *fakeUploader) Upload(_ context.Context, frame *entity.Frame) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.fail[frame.Sequence] {
		return errors.New("relay unavailable")
	}
	u.frames = append(u.frames, frame)
	return nil
}

func frames(n int) []*entity.Frame {
	out := make([]*entity.Frame, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, &entity.Frame{Name: "f.jpg", Sequence: i, Payload: []byte{byte(i)}})
	}
	return out
}

func TestServiceUploadsAllFrames(t *testing.T) {
	f := &sliceFramer{frames: frames(3)}
	u := &fakeUploader{}

	s := New(f, u, 200, map[string]string{"fps": "200"}, zaptest.NewLogger(t))
	require.NoError(t, s.Start(context.Background()))
	s.Wait()

	require.Len(t, u.frames, 3)
	for i, frame := range u.frames {
		assert.Equal(t, i+1, frame.Sequence)
		assert.Equal(t, "200", frame.Metadata["fps"])
	}
	assert.Equal(t, uint64(3), s.Sent())
	assert.True(t, f.stopped)
}

func TestServiceContinuesAfterFailedUpload(t *testing.T) {
	f := &sliceFramer{frames: frames(3)}
	u := &fakeUploader{fail: map[int]bool{2: true}}

	s := New(f, u, 200, nil, zaptest.NewLogger(t))
	require.NoError(t, s.Start(context.Background()))
	s.Wait()

	assert.Equal(t, uint64(2), s.Sent())
	assert.Equal(t, uint64(1), s.Failed())
}

func TestServiceStopsOnCancel(t *testing.T) {
	f := &sliceFramer{frames: frames(1000)}
	u := &fakeUploader{}

	ctx, cancel := context.WithCancel(context.Background())

	s := New(f, u, 1, nil, zaptest.NewLogger(t))
	require.NoError(t, s.Start(ctx))

	cancel()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
	assert.Zero(t, s.Sent())
}
