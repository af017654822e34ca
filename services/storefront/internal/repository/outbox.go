package repository

import (
	"context"
	"time"
)

// OutboxStatus статус события в outbox
type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxSent    OutboxStatus = "sent"
	OutboxFailed  OutboxStatus = "failed"
)

// OutboxEvent доменное событие, записанное в одной транзакции с изменением состояния
type OutboxEvent struct {
	EventID     string
	Topic       string
	AggregateID string
	EventType   string
	Payload     []byte
	Status      OutboxStatus
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	// ClaimedUntil аренда диспетчера; zero значит свободно
	ClaimedUntil time.Time
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=OutboxRepository --dir=. --output=./mocks --outpkg=mocks

// OutboxRepository очередь событий для публикации в Kafka
type OutboxRepository interface {
	Add(ctx context.Context, e OutboxEvent) error
	// ClaimPending атомарно берёт в аренду на lease старейшие свободные pending события.
	// Пока аренда не истекла, другие экземпляры диспетчера эти события не получат.
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]OutboxEvent, error)
	MarkSent(ctx context.Context, eventID string) error
	// MarkFailed увеличивает attempts, сохраняет ошибку и снимает аренду; событие остаётся pending
	MarkFailed(ctx context.Context, eventID, errMsg string) error
}
