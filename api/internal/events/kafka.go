package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"camRelay/api/internal/entity"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

const (
	DefaultTopic = "frames"

	TypeFramePublished = "frame.published"
)

// FrameEvent announces a published frame. The image itself is not included.
type FrameEvent struct {
	Type        string            `json:"type"`
	ID          string            `json:"id"`
	Sequence    uint64            `json:"seq"`
	Size        int               `json:"size"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
}

func NewFrameEvent(frame *entity.Frame) FrameEvent {
	return FrameEvent{
		Type:        TypeFramePublished,
		ID:          frame.ID,
		Sequence:    frame.Sequence,
		Size:        frame.Size(),
		Metadata:    frame.Metadata,
		PublishedAt: frame.PublishedAt,
	}
}

func NewProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 2

	return config
}

func ConnectProducer(brokers []string) (sarama.SyncProducer, error) {
	return sarama.NewSyncProducer(brokers, NewProducerConfig())
}

type Notifier struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewNotifier(producer sarama.SyncProducer, topic string, logger *zap.Logger) *Notifier {
	if topic == "" {
		topic = DefaultTopic
	}

	return &Notifier{
		producer: producer,
		topic:    topic,
		logger:   logger.Named("kafka"),
	}
}

func (r *Notifier) Name() string {
	return "kafka"
}

// Consume produces one FrameEvent. sarama.SyncProducer has no context support,
// so ctx is only checked before sending.
func (r *Notifier) Consume(ctx context.Context, frame *entity.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := json.Marshal(NewFrameEvent(frame))
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: r.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(frame.Sequence, 10)),
		Value: sarama.ByteEncoder(res),
	}

	partition, offset, err := r.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send frame event: %w", err)
	}

	r.logger.Debug("sent frame event",
		zap.Uint64("seq", frame.Sequence),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)

	return nil
}

func (r *Notifier) Close() error {
	return r.producer.Close()
}
