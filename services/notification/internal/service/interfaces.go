package service

import (
	"context"

	"github.com/byteracerx/upkar-pharma-orders-sub001/services/notification/internal/email"
)

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=WhatsAppSender --dir=. --output=./mocks --outpkg=mocks
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=EmailSender --dir=. --output=./mocks --outpkg=mocks

// WhatsAppSender отправка текста на номер телефона
type WhatsAppSender interface {
	Send(ctx context.Context, to, text string) error
}

// EmailSender отправка письма
type EmailSender interface {
	Send(ctx context.Context, msg email.Message) error
}

// Renderer рендер шаблонов по имени <event_type>.<part>
type Renderer interface {
	Render(name string, data any) (string, error)
	Has(name string) bool
}

// Source откуда пришло событие (для inbox и логов)
type Source struct {
	Topic     string
	Partition int
	Offset    int64
}
