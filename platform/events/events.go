// Package events описывает контракт доменных событий, которые storefront пишет в outbox,
// а notification читает из Kafka.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version текущая версия payload
const Version = 1

// Типы событий
const (
	OrderPlaced        = "order.placed"
	OrderStatusChanged = "order.status_changed"
	PaymentRecorded    = "payment.recorded"
	DoctorRegistered   = "doctor.registered"
	DoctorApproved     = "doctor.approved"
	DoctorRejected     = "doctor.rejected"
)

// HeaderEventType Kafka header с типом события (роутинг без разбора тела)
const HeaderEventType = "event_type"

// Envelope payload события. Денежные суммы передаются строками с двумя знаками.
type Envelope struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	EventVersion int       `json:"event_version"`
	OccurredAt   time.Time `json:"occurred_at"`
	Doctor       Doctor    `json:"doctor"`
	Order        *Order    `json:"order,omitempty"`
	Payment      *Payment  `json:"payment,omitempty"`
}

// Doctor получатель уведомления
type Doctor struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	ClinicName string `json:"clinic_name,omitempty"`
	Reason     string `json:"reason,omitempty"` // причина отказа
}

// Order данные заказа для order.* событий
type Order struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	Total          string `json:"total"`
	ItemsCount     int    `json:"items_count"`
	Reason         string `json:"reason,omitempty"`
}

// Payment данные оплаты для payment.recorded
type Payment struct {
	ID        string `json:"id"`
	Amount    string `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
	Balance   string `json:"balance"`
}

// Known известен ли тип события
func Known(eventType string) bool {
	switch eventType {
	case OrderPlaced, OrderStatusChanged, PaymentRecorded, DoctorRegistered, DoctorApproved, DoctorRejected:
		return true
	}
	return false
}

// Decode разбирает и проверяет обязательные поля
func Decode(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if e.EventID == "" {
		return Envelope{}, fmt.Errorf("event_id is required")
	}
	if !Known(e.EventType) {
		return Envelope{}, fmt.Errorf("unknown event_type %q", e.EventType)
	}
	if e.EventVersion != Version {
		return Envelope{}, fmt.Errorf("unsupported event_version %d", e.EventVersion)
	}
	if e.Doctor.ID == "" {
		return Envelope{}, fmt.Errorf("doctor.id is required")
	}
	switch e.EventType {
	case OrderPlaced, OrderStatusChanged:
		if e.Order == nil || e.Order.ID == "" {
			return Envelope{}, fmt.Errorf("order is required for %s", e.EventType)
		}
	case PaymentRecorded:
		if e.Payment == nil || e.Payment.ID == "" {
			return Envelope{}, fmt.Errorf("payment is required for %s", e.EventType)
		}
	}
	return e, nil
}
