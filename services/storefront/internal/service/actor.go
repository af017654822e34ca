package service

import "github.com/byteracerx/upkar-pharma-orders-sub001/services/storefront/internal/repository"

// Actor аутентифицированный инициатор операции
type Actor struct {
	ID   string
	Role repository.Role
}

// IsAdmin администратор
func (a Actor) IsAdmin() bool {
	return a.Role == repository.RoleAdmin
}

// SystemActor для CLI и фоновых операций
var SystemActor = Actor{ID: "system", Role: repository.RoleAdmin}
