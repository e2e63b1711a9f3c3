// Package broadcaster turns changes of the current frame into a
// multipart/x-mixed-replace stream for one viewer connection.
//
// A Broadcaster moves through AwaitFirstFrame, Streaming and Closed. It sends
// a segment only when the store sequence moved past the last one it sent, so a
// viewer that cannot keep up skips intermediate frames instead of queueing them.
package broadcaster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"camRelay/api/internal/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultPollInterval = 50 * time.Millisecond

type State int32

const (
	AwaitFirstFrame State = iota
	Streaming
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitFirstFrame:
		return "await_first_frame"
	case Streaming:
		return "streaming"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Source is the read side of the frame store.
type Source interface {
	Watch() (*entity.Frame, <-chan struct{})
}

type Stats struct {
	ID           string    `json:"id"`
	State        string    `json:"state"`
	LastSequence uint64    `json:"last_seq"`
	Sent         uint64    `json:"sent"`
	Skipped      uint64    `json:"skipped"`
	ConnectedAt  time.Time `json:"connected_at"`
}

type Broadcaster struct {
	id           string
	src          Source
	w            io.Writer
	pollInterval time.Duration
	writeTimeout time.Duration
	logger       *zap.Logger
	connectedAt  time.Time

	state   atomic.Int32
	lastSeq atomic.Uint64
	sent    atomic.Uint64
	skipped atomic.Uint64
}

type Option func(*Broadcaster)

func WithID(id string) Option {
	return func(b *Broadcaster) { b.id = id }
}

func WithPollInterval(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.pollInterval = d
		}
	}
}

// WithWriteTimeout bounds each segment write when w is an http.ResponseWriter.
func WithWriteTimeout(d time.Duration) Option {
	return func(b *Broadcaster) { b.writeTimeout = d }
}

func WithLogger(logger *zap.Logger) Option {
	return func(b *Broadcaster) { b.logger = logger }
}

func New(src Source, w io.Writer, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		id:           uuid.NewString(),
		src:          src,
		w:            w,
		pollInterval: DefaultPollInterval,
		logger:       zap.NewNop(),
		connectedAt:  time.Now(),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.logger = b.logger.Named("broadcaster").With(zap.String("viewerID", b.id))

	return b
}

func (b *Broadcaster) ID() string {
	return b.id
}

func (b *Broadcaster) State() State {
	return State(b.state.Load())
}

func (b *Broadcaster) Stats() Stats {
	return Stats{
		ID:           b.id,
		State:        b.State().String(),
		LastSequence: b.lastSeq.Load(),
		Sent:         b.sent.Load(),
		Skipped:      b.skipped.Load(),
		ConnectedAt:  b.connectedAt,
	}
}

// Run streams frames until ctx is cancelled or a write fails. Cancellation
// returns nil; a failed write is returned and is terminal.
func (b *Broadcaster) Run(ctx context.Context) error {
	defer b.state.Store(int32(Closed))

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	var last uint64

	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, changed := b.src.Watch()

		if frame != nil && frame.Sequence > last {
			if err := b.send(frame); err != nil {
				b.logger.Debug("viewer write failed", zap.Uint64("seq", frame.Sequence), zap.Error(err))
				return fmt.Errorf("write segment %d: %w", frame.Sequence, err)
			}

			if last != 0 && frame.Sequence > last+1 {
				b.skipped.Add(frame.Sequence - last - 1)
			}

			last = frame.Sequence
			b.lastSeq.Store(last)
			b.sent.Add(1)
			b.state.CompareAndSwap(int32(AwaitFirstFrame), int32(Streaming))

			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		case <-ticker.C:
		}
	}
}

func (b *Broadcaster) send(frame *entity.Frame) error {
	rw, isHTTP := b.w.(http.ResponseWriter)

	var rc *http.ResponseController
	if isHTTP {
		rc = http.NewResponseController(rw)
	}

	if rc != nil && b.writeTimeout > 0 {
		err := rc.SetWriteDeadline(time.Now().Add(b.writeTimeout))
		if err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}

	if err := WriteSegment(b.w, frame); err != nil {
		return err
	}

	if rc != nil {
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		return nil
	}

	if f, ok := b.w.(http.Flusher); ok {
		f.Flush()
	}

	return nil
}
