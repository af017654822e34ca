package service

import (
	"errors"
	"fmt"
)

var (
	// ErrDoctorNotApproved заказ от врача, не прошедшего модерацию
	ErrDoctorNotApproved = errors.New("doctor is not approved")
	// ErrCreditLimitExceeded долг после заказа превысил бы кредитный лимит
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")
	// ErrInvalidStateTransition переход статуса заказа или аккаунта не разрешён
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrInvalidCredentials неверный email или пароль
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountRejected вход для отклонённого аккаунта
	ErrAccountRejected = errors.New("account has been rejected")
	// ErrUnauthenticated сессия отсутствует или истекла
	ErrUnauthenticated = errors.New("session not found or expired")
	// ErrForbidden действие недоступно роли
	ErrForbidden = errors.New("forbidden")
	// ErrEmptyOrder в заказе нет позиций
	ErrEmptyOrder = errors.New("order must contain at least one item")
)

// ValidationError ошибка входных данных (HTTP 400)
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation проверяет, что err (или обёрнутая в нём ошибка) является ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
