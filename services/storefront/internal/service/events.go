package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/byteracerx/upkar-pharma-orders-sub001/platform/events"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/realtime"
	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"
)

// Topics Kafka топики доменных событий
type Topics struct {
	Orders   string
	Payments string
	Doctors  string
}

// eventWriter пишет события в outbox внутри текущей транзакции
type eventWriter struct {
	outbox repository.OutboxRepository
	topics Topics
}

func (w eventWriter) write(ctx context.Context, topic, aggregateID string, env events.Envelope) error {
	env.EventID = uuid.NewString()
	env.EventVersion = events.Version
	if env.OccurredAt.IsZero() {
		env.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.EventType, err)
	}

	if err := w.outbox.Add(ctx, repository.OutboxEvent{
		EventID:     env.EventID,
		Topic:       topic,
		AggregateID: aggregateID,
		EventType:   env.EventType,
		Payload:     payload,
		Status:      repository.OutboxPending,
	}); err != nil {
		return fmt.Errorf("add %s to outbox: %w", env.EventType, err)
	}
	return nil
}

func doctorRef(a repository.Account) events.Doctor {
	return events.Doctor{
		ID:         a.ID,
		Name:       a.FullName,
		Email:      a.Email,
		Phone:      a.Phone,
		ClinicName: a.ClinicName,
	}
}

func orderRef(o repository.Order, previous repository.OrderStatus, reason string) *events.Order {
	return &events.Order{
		ID:             o.ID,
		Status:         string(o.Status),
		PreviousStatus: string(previous),
		Total:          o.Total.StringFixed(2),
		ItemsCount:     len(o.Items),
		Reason:         reason,
	}
}

// publishChanges realtime уведомления после коммита; ошибки не влияют на результат операции
func publishChanges(ctx context.Context, pub ChangePublisher, logger *zap.Logger, changes ...realtime.Change) {
	if pub == nil {
		return
	}
	now := time.Now().UTC()
	for _, c := range changes {
		if c.At.IsZero() {
			c.At = now
		}
		if err := pub.Publish(ctx, c); err != nil {
			logger.Warn("failed to publish realtime change",
				zap.Error(err),
				zap.String("table", string(c.Table)),
				zap.String("id", c.ID),
			)
		}
	}
}
