// Package sink forwards published frames to external consumers (Redis, Kafka)
// without putting them on the upload path.
//
// The dispatcher keeps a single-slot mailbox: Offer overwrites a frame that has
// not been dispatched yet, so a slow sink makes the dispatcher skip frames
// instead of queueing them.
package sink

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"camRelay/api/internal/entity"

	"go.uber.org/zap"
)

const DefaultTimeout = 2 * time.Second

type Sink interface {
	Name() string
	Consume(ctx context.Context, frame *entity.Frame) error
}

type Stats struct {
	Sinks      []string `json:"sinks"`
	Dispatched uint64   `json:"dispatched"`
	Drops      uint64   `json:"drops"`
	Failures   uint64   `json:"failures"`
}

type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending *entity.Frame
	stopped bool

	dispatched atomic.Uint64
	drops      atomic.Uint64
	failures   atomic.Uint64

	startedMu sync.Mutex
	started   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func New(logger *zap.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	d := &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		logger:  logger.Named("sink"),
	}
	d.cond = sync.NewCond(&d.mu)

	return d
}

func (d *Dispatcher) Start(ctx context.Context) error {
	d.startedMu.Lock()
	defer d.startedMu.Unlock()

	if d.started {
		return fmt.Errorf("dispatcher already started")
	}

	ctx, d.cancel = context.WithCancel(ctx)
	d.started = true

	d.mu.Lock()
	d.stopped = false
	d.mu.Unlock()

	d.wg.Add(1)
	go d.loop(ctx)

	d.logger.Info("start dispatcher", zap.Strings("sinks", d.names()))

	return nil
}

// Stop waits for an in-flight dispatch to finish. A pending frame is dropped.
func (d *Dispatcher) Stop() {
	d.startedMu.Lock()
	defer d.startedMu.Unlock()

	if !d.started {
		return
	}

	d.cancel()

	d.mu.Lock()
	d.stopped = true
	d.cond.Broadcast()
	d.mu.Unlock()

	d.wg.Wait()
	d.started = false
}

// Offer hands frame to the dispatch loop. It never blocks on sinks.
func (d *Dispatcher) Offer(frame *entity.Frame) {
	if len(d.sinks) == 0 {
		return
	}

	d.mu.Lock()
	if d.pending != nil {
		d.drops.Add(1)
	}
	d.pending = frame
	d.cond.Signal()
	d.mu.Unlock()
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Sinks:      d.names(),
		Dispatched: d.dispatched.Load(),
		Drops:      d.drops.Load(),
		Failures:   d.failures.Load(),
	}
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		for d.pending == nil && !d.stopped {
			d.cond.Wait()
		}

		if d.stopped {
			d.mu.Unlock()
			return
		}

		frame := d.pending
		d.pending = nil
		d.mu.Unlock()

		d.dispatch(ctx, frame)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, frame *entity.Frame) {
	for _, s := range d.sinks {
		sctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := s.Consume(sctx, frame)
		cancel()

		if err != nil {
			d.failures.Add(1)
			d.logger.Error("sink consume failed",
				zap.String("sink", s.Name()),
				zap.Uint64("seq", frame.Sequence),
				zap.Error(err),
			)
		}
	}

	d.dispatched.Add(1)
}

func (d *Dispatcher) names() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}

	return names
}
