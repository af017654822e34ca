package repository

import (
	"context"
	"time"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=InboxRepository --dir=. --output=./mocks --outpkg=mocks

// InboxEvent событие, принятое из Kafka
type InboxEvent struct {
	EventID     string
	EventType   string
	AggregateID string
	OccurredAt  time.Time
	Topic       string
	Partition   int
	Offset      int64
}

// InboxUpsertResult состояние записи после upsert. Attempts считает доставки
// одного event_id, включая повторы после рестарта consumer.
type InboxUpsertResult struct {
	AlreadyProcessed bool // sent, уведомления уже ушли
	CanProcess       bool // pending
	Attempts         int
}

// InboxRepository журнал обработанных событий. Ключ event_id, повторная доставка
// того же события из Kafka увеличивает attempts, пока запись не станет sent.
type InboxRepository interface {
	UpsertInboxPending(ctx context.Context, e InboxEvent) (*InboxUpsertResult, error)
	MarkInboxSent(ctx context.Context, eventID string) error
	// MarkInboxFailed запись остаётся pending, меняется только last_error
	MarkInboxFailed(ctx context.Context, eventID string, errString string) error
}
