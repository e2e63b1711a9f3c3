package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"camRelay/api/internal/entity"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultFrameKey = "camrelay:frame:latest"
	DefaultFrameTTL = 3 * time.Minute
)

var ErrNoFrame = errors.New("no frame in redis")

func PostFrame(ctx context.Context, client *redis.Client, key string, frame *entity.Frame, ttl time.Duration) error {
	res, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := client.Set(ctx, key, res, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}

func ReadFrame(ctx context.Context, client *redis.Client, key string) (*entity.Frame, error) {
	b, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoFrame
		}
		return nil, err
	}

	var frame entity.Frame
	if err = json.Unmarshal(b, &frame); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return &frame, nil
}

// FrameMirror keeps a copy of the current frame in Redis for other processes.
// Only the latest frame is kept; every write replaces the key.
type FrameMirror struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

func NewFrameMirror(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *FrameMirror {
	if key == "" {
		key = DefaultFrameKey
	}
	if ttl <= 0 {
		ttl = DefaultFrameTTL
	}

	return &FrameMirror{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger.Named("redis"),
	}
}

func (r *FrameMirror) Name() string {
	return "redis"
}

func (r *FrameMirror) Consume(ctx context.Context, frame *entity.Frame) error {
	if err := PostFrame(ctx, r.client, r.key, frame, r.ttl); err != nil {
		return err
	}

	r.logger.Debug("mirrored frame", zap.Uint64("seq", frame.Sequence), zap.Int("size", frame.Size()))

	return nil
}

func (r *FrameMirror) Latest(ctx context.Context) (*entity.Frame, error) {
	return ReadFrame(ctx, r.client, r.key)
}

func (r *FrameMirror) Close() error {
	return r.client.Close()
}
