package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/events"
	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/observability"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=MessageWriter --dir=. --output=./mocks --outpkg=mocks

// MessageWriter часть *kafka.Writer, нужная dispatcher
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublishObserver получает результат каждой публикации (Prometheus)
type PublishObserver interface {
	OutboxPublished(topic string, ok bool)
}

// NewWriter kafka.Writer без топика по умолчанию: топик берётся из строки outbox
func NewWriter(brokers []string, clientID string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{}, // события одного агрегата в одну партицию
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{ClientID: clientID},
	}
}

// DispatcherConfig параметры цикла публикации
type DispatcherConfig struct {
	BatchSize  int
	Interval   time.Duration
	MaxRetries int
	Backoff    time.Duration
	// Lease аренда батча; по истечении события снова доступны другим экземплярам
	Lease time.Duration
}

const defaultLease = 30 * time.Second

// OutboxDispatcher читает pending события из outbox и публикует их в Kafka
type OutboxDispatcher struct {
	logger   *zap.Logger
	repo     repository.OutboxRepository
	writer   MessageWriter
	observer PublishObserver
	cfg      DispatcherConfig
}

// NewOutboxDispatcher observer может быть nil
func NewOutboxDispatcher(
	logger *zap.Logger,
	repo repository.OutboxRepository,
	writer MessageWriter,
	observer PublishObserver,
	cfg DispatcherConfig,
) *OutboxDispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Lease <= 0 {
		cfg.Lease = defaultLease
	}
	return &OutboxDispatcher{
		logger:   logger,
		repo:     repo,
		writer:   writer,
		observer: observer,
		cfg:      cfg,
	}
}

// Start крутит цикл до отмены ctx
func (d *OutboxDispatcher) Start(ctx context.Context) error {
	d.logger.Info("starting outbox dispatcher",
		zap.Int("batch_size", d.cfg.BatchSize),
		zap.Duration("interval", d.cfg.Interval),
		zap.Int("max_retries", d.cfg.MaxRetries),
		zap.Duration("lease", d.cfg.Lease),
	)

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	if err := d.processBatch(ctx); err != nil && ctx.Err() == nil {
		d.logger.Error("failed to process initial batch", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher stopped")
			return nil
		case <-ticker.C:
			if err := d.processBatch(ctx); err != nil && ctx.Err() == nil {
				d.logger.Error("failed to process batch", zap.Error(err))
			}
		}
	}
}

func (d *OutboxDispatcher) processBatch(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	pending, err := d.repo.ClaimPending(ctx, d.cfg.BatchSize, d.cfg.Lease)
	if err != nil {
		return fmt.Errorf("failed to claim pending events: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	d.logger.Debug("processing outbox batch", zap.Int("count", len(pending)))

	for _, event := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := d.processEvent(ctx, event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// остальные события батча публикуем дальше
			d.logger.Error("failed to process event",
				zap.Error(err),
				zap.String("event_id", event.EventID),
				zap.String("topic", event.Topic),
			)
		}
	}
	return nil
}

func (d *OutboxDispatcher) message(ctx context.Context, event repository.OutboxEvent) kafka.Message {
	msg := kafka.Message{
		Topic: event.Topic,
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: events.HeaderEventType, Value: []byte(event.EventType)},
		},
	}
	observability.InjectKafka(ctx, &msg)
	return msg
}

// processEvent публикует с линейным backoff; после исчерпания попыток событие остаётся pending
func (d *OutboxDispatcher) processEvent(ctx context.Context, event repository.OutboxEvent) error {
	msg := d.message(ctx, event)

	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxRetries; attempt++ {
		err := d.writer.WriteMessages(ctx, msg)
		if err == nil {
			d.observe(event.Topic, true)
			if markErr := d.repo.MarkSent(ctx, event.EventID); markErr != nil {
				return fmt.Errorf("failed to mark event as sent: %w", markErr)
			}
			d.logger.Info("outbox event published",
				zap.String("event_id", event.EventID),
				zap.String("event_type", event.EventType),
				zap.String("topic", event.Topic),
				zap.String("aggregate_id", event.AggregateID),
				zap.Int("attempt", attempt),
			)
			return nil
		}

		lastErr = err
		d.observe(event.Topic, false)
		d.logger.Warn("failed to publish outbox event",
			zap.Error(err),
			zap.String("event_id", event.EventID),
			zap.String("topic", event.Topic),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", d.cfg.MaxRetries),
		)

		if attempt < d.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.cfg.Backoff * time.Duration(attempt)):
			}
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	errMsg := fmt.Sprintf("failed after %d attempts: %v", d.cfg.MaxRetries, lastErr)
	if markErr := d.repo.MarkFailed(ctx, event.EventID, errMsg); markErr != nil {
		return fmt.Errorf("failed to mark event as failed: %w", markErr)
	}
	return fmt.Errorf("failed to publish event after %d attempts: %w", d.cfg.MaxRetries, lastErr)
}

func (d *OutboxDispatcher) observe(topic string, ok bool) {
	if d.observer != nil {
		d.observer.OutboxPublished(topic, ok)
	}
}

// Close закрывает Kafka writer
func (d *OutboxDispatcher) Close() error {
	d.logger.Info("closing outbox dispatcher")
	return d.writer.Close()
}
