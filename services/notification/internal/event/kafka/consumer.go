package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/events"
	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/observability"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/service"
)

// MessageReader часть kafka.Reader, нужная consumer'у
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventHandler обработчик доменного события
type EventHandler interface {
	HandleEvent(ctx context.Context, e events.Envelope, src service.Source) error
}

// Publisher публикует необработанные сообщения в DLQ
type Publisher interface {
	Publish(ctx context.Context, f Failure) error
}

// RetryConfig повторы обработки одного сообщения
type RetryConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
}

// Backoff задержка перед попыткой attempt (с 2): base, 2·base, 4·base...
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	return c.BackoffBase * time.Duration(1<<uint(attempt-2))
}

// NewReader создаёт reader consumer group для топика
func NewReader(brokers []string, groupID, topic string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
}

// EventConsumer читает события одного топика
type EventConsumer struct {
	logger  *zap.Logger
	topic   string
	reader  MessageReader
	handler EventHandler
	dlq     Publisher
	retry   RetryConfig
}

// NewEventConsumer создаёт consumer для топика
func NewEventConsumer(
	logger *zap.Logger,
	topic string,
	reader MessageReader,
	handler EventHandler,
	dlq Publisher,
	retry RetryConfig,
) *EventConsumer {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	return &EventConsumer{
		logger:  logger.With(zap.String("topic", topic)),
		topic:   topic,
		reader:  reader,
		handler: handler,
		dlq:     dlq,
		retry:   retry,
	}
}

// Start запускает consumer и начинает обработку сообщений
// Использует at-least-once семантику: FetchMessage + CommitMessages после обработки
func (c *EventConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting kafka consumer",
		zap.Int("max_retry_attempts", c.retry.MaxAttempts),
		zap.Duration("retry_backoff_base", c.retry.BackoffBase),
	)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer context cancelled, stopping")
				return nil
			}
			c.logger.Error("failed to fetch message from kafka", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		if !c.processMessage(ctx, m) {
			// без commit сообщение будет прочитано повторно после ребаланса или рестарта
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("failed to commit message offset",
				zap.Error(err),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
			continue
		}
		c.logger.Debug("message offset committed",
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
	}
}

// processMessage обрабатывает одно сообщение из Kafka
// Возвращает true, если нужно закоммитить offset
func (c *EventConsumer) processMessage(ctx context.Context, m kafka.Message) bool {
	ctx = observability.ExtractKafka(ctx, m)
	logger := observability.L(ctx, c.logger).With(
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
	)

	e, err := events.Decode(m.Value)
	if err != nil {
		logger.Error("failed to decode event", zap.Error(err), zap.String("event_type", headerValue(m, events.HeaderEventType)))
		return c.toDLQ(ctx, logger, Failure{Message: m, Err: err, Stage: StageDecode, EventType: headerValue(m, events.HeaderEventType)})
	}

	logger = logger.With(zap.String("event_id", e.EventID), zap.String("event_type", e.EventType))
	logger.Info("received event")

	if err := c.handleWithRetry(ctx, logger, m, e); err != nil {
		if ctx.Err() != nil {
			// shutdown: не коммитим, событие дочитается после рестарта
			return false
		}
		logger.Error("failed to handle event after all retries, sending to DLQ", zap.Error(err))
		return c.toDLQ(ctx, logger, Failure{Message: m, Err: err, Stage: StageHandle, EventType: e.EventType, EventID: e.EventID, Attempts: c.retry.MaxAttempts})
	}

	logger.Info("event processed successfully")
	return true
}

// handleWithRetry обрабатывает событие с экспоненциальным backoff
func (c *EventConsumer) handleWithRetry(ctx context.Context, logger *zap.Logger, m kafka.Message, e events.Envelope) error {
	src := service.Source{Topic: m.Topic, Partition: m.Partition, Offset: m.Offset}
	if src.Topic == "" {
		src.Topic = c.topic
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.retry.Backoff(attempt)
			logger.Info("retrying event",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.retry.MaxAttempts),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := c.handler.HandleEvent(ctx, e, src)
		if err == nil {
			if attempt > 1 {
				logger.Info("event processed successfully after retry", zap.Int("attempt", attempt))
			}
			return nil
		}
		lastErr = err
		logger.Warn("failed to handle event",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.retry.MaxAttempts),
		)
	}
	return lastErr
}

// toDLQ публикует в DLQ; при ошибке публикации offset не коммитится
func (c *EventConsumer) toDLQ(ctx context.Context, logger *zap.Logger, f Failure) bool {
	// DLQ пишется и во время shutdown
	dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := c.dlq.Publish(dlqCtx, f); err != nil {
		logger.Error("failed to publish to DLQ, not committing", zap.Error(err))
		return false
	}
	return true
}

// Close закрывает Kafka reader
func (c *EventConsumer) Close() error {
	c.logger.Info("closing kafka consumer")
	return c.reader.Close()
}

func headerValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
