package service

import (
	"context"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/realtime"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=ChangePublisher --dir=. --output=./mocks --outpkg=mocks

// ChangePublisher публикует изменения в realtime ленту
type ChangePublisher interface {
	Publish(ctx context.Context, c realtime.Change) error
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=BusinessMetrics --dir=. --output=./mocks --outpkg=mocks

// BusinessMetrics счётчики бизнес-событий
type BusinessMetrics interface {
	OrderPlaced()
	OrderStatusChanged(status string)
	PaymentRecorded()
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=CacheInvalidator --dir=. --output=./mocks --outpkg=mocks

// CacheInvalidator сбрасывает кэш каталога; вызывается после коммита, изменившего остатки
type CacheInvalidator interface {
	Invalidate()
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate() {}

type noopMetrics struct{}

func (noopMetrics) OrderPlaced()              {}
func (noopMetrics) OrderStatusChanged(string) {}
func (noopMetrics) PaymentRecorded()          {}
