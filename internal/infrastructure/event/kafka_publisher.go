package event

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/santi-junco/sync-tiendanube/internal/domain/integration"
)

// ErrPublisherClosed is returned when publishing after Close
var ErrPublisherClosed = errors.New("event publisher is closed")

// messageWriter is the subset of *kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka publisher
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// KafkaPublisher writes sync events to a Kafka topic keyed by store and handle
// so every product's events land on one partition in order.
type KafkaPublisher struct {
	writer       messageWriter
	serializer   *EventSerializer
	writeTimeout time.Duration
	logger       *zap.Logger
	closed       atomic.Bool
}

// NewKafkaPublisher creates a publisher backed by a kafka.Writer
func NewKafkaPublisher(cfg KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           cfg.WriteTimeout,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, cfg.WriteTimeout, logger), nil
}

func newKafkaPublisher(writer messageWriter, timeout time.Duration, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{
		writer:       writer,
		serializer:   NewEventSerializer(),
		writeTimeout: timeout,
		logger:       logger.Named("kafka"),
	}
}

// Publish serializes and writes one event
func (p *KafkaPublisher) Publish(ctx context.Context, event integration.SyncEvent) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}
	value, err := p.serializer.Serialize(event)
	if err != nil {
		return err
	}

	if p.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.writeTimeout)
		defer cancel()
	}

	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "schema_version", Value: VersionHeader()},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write %s event: %w", event.Type, err)
	}
	p.logger.Debug("Published sync event",
		zap.String("event_type", string(event.Type)),
		zap.String("key", event.Key()),
	)
	return nil
}

// Handle lets the publisher subscribe to an InMemoryEventBus
func (p *KafkaPublisher) Handle(ctx context.Context, event integration.SyncEvent) error {
	return p.Publish(ctx, event)
}

// Close flushes pending messages and closes the writer
func (p *KafkaPublisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}

var (
	_ integration.SyncEventPublisher = (*KafkaPublisher)(nil)
	_ Handler                        = (*KafkaPublisher)(nil)
)
