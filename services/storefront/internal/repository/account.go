package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Role роль аккаунта
type Role string

const (
	RoleDoctor Role = "doctor"
	RoleAdmin  Role = "admin"
)

// AccountStatus статус модерации врача
type AccountStatus string

const (
	StatusPending   AccountStatus = "pending"
	StatusApproved  AccountStatus = "approved"
	StatusRejected  AccountStatus = "rejected"
	StatusSuspended AccountStatus = "suspended"
)

// Valid проверяет, что статус из известного набора
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusSuspended:
		return true
	}
	return false
}

// Account врач или администратор
type Account struct {
	ID              string
	Email           string
	PasswordHash    string
	Role            Role
	Status          AccountStatus
	FullName        string
	Phone           string
	ClinicName      string
	LicenseNumber   string
	City            string
	CreditLimit     decimal.Decimal // 0: без лимита
	RejectionReason string
	ApprovedAt      *time.Time
	ApprovedBy      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AccountQuery фильтр списка аккаунтов
type AccountQuery struct {
	Role   Role
	Status AccountStatus
	Limit  int
	Offset int
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=AccountRepository --dir=. --output=./mocks --outpkg=mocks

// AccountRepository хранилище аккаунтов
type AccountRepository interface {
	// Create возвращает ErrAlreadyExists при дубликате email
	Create(ctx context.Context, a Account) error
	GetByID(ctx context.Context, id string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	// GetByIDForUpdate блокирует строку до конца транзакции (сериализует заказы одного врача)
	GetByIDForUpdate(ctx context.Context, id string) (Account, error)
	// Update сохраняет статус, лимит и поля модерации
	Update(ctx context.Context, a Account) error
	List(ctx context.Context, q AccountQuery) ([]Account, error)
}
