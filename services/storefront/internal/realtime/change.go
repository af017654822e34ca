// Package realtime рассылает уведомления об изменениях строк подписчикам (SSE).
// Гарантий порядка и дедупликации нет: клиент перечитывает данные по факту изменения.
package realtime

import (
	"context"
	"time"
)

// Table источник изменения
type Table string

const (
	TableProducts Table = "products"
	TableOrders   Table = "orders"
	TableLedger   Table = "ledger"
	TableDoctors  Table = "doctors"
)

// Action тип изменения
type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
)

// Change уведомление об изменении строки
type Change struct {
	Table    Table     `json:"table"`
	Action   Action    `json:"action"`
	ID       string    `json:"id"`
	DoctorID string    `json:"doctor_id,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher публикует изменения всем экземплярам сервиса
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Filter решает, доставлять ли изменение подписчику
type Filter func(c Change) bool

// ForAccount админ видит всё; врач видит каталог и только свои строки
func ForAccount(accountID string, admin bool) Filter {
	return func(c Change) bool {
		if admin {
			return true
		}
		switch c.Table {
		case TableProducts:
			return true
		case TableDoctors:
			return c.ID == accountID
		default:
			return c.DoctorID == accountID
		}
	}
}
