package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"camRelay/runner/internal/entity"
	"camRelay/runner/internal/framer"

	"go.uber.org/zap"
)

type Uploader interface {
	Upload(ctx context.Context, frame *entity.Frame) error
}

// Service plays frames from a Framer into a relay at a fixed rate, one upload
// at a time. A failed upload is logged and the next frame is sent on schedule.
type Service struct {
	framer   framer.Framer
	uploader Uploader
	interval time.Duration
	metadata map[string]string
	wg       *sync.WaitGroup
	logger   *zap.Logger

	sent   atomic.Uint64
	failed atomic.Uint64
}

func New(f framer.Framer, uploader Uploader, fps int, metadata map[string]string, logger *zap.Logger) *Service {
	if fps <= 0 {
		fps = 1
	}

	return &Service{
		framer:   f,
		uploader: uploader,
		interval: time.Second / time.Duration(fps),
		metadata: metadata,
		wg:       &sync.WaitGroup{},
		logger:   logger.Named("runner"),
	}
}

func (r *Service) Start(ctx context.Context) error {
	if err := r.framer.Start(); err != nil {
		return fmt.Errorf("start framer: %w", err)
	}

	r.logger.Info("started service", zap.Duration("interval", r.interval))

	r.wg.Add(1)
	go r.run(ctx)

	return nil
}

func (r *Service) Wait() {
	r.wg.Wait()
}

func (r *Service) Sent() uint64 {
	return r.sent.Load()
}

func (r *Service) Failed() uint64 {
	return r.failed.Load()
}

func (r *Service) run(ctx context.Context) {
	defer r.wg.Done()
	defer r.framer.Stop()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := r.framer.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.logger.Info("no more frames", zap.Uint64("sent", r.Sent()), zap.Uint64("failed", r.Failed()))
			} else {
				r.logger.Error("next frame failed", zap.Error(err))
			}
			return
		}

		if len(r.metadata) > 0 {
			frame.Metadata = maps.Clone(r.metadata)
		}

		if err := r.uploader.Upload(ctx, frame); err != nil {
			r.failed.Add(1)
			r.logger.Warn("upload failed", zap.Int("seq", frame.Sequence), zap.String("name", frame.Name), zap.Error(err))
			continue
		}

		r.sent.Add(1)
	}
}
