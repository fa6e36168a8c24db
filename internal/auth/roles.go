package auth

import "fmt"

// Роли, которые выдаются в токенах
const (
	// RoleService - контент-бот: проверка доступа, создание платежей, поток уведомлений
	RoleService = "service"
	// RoleOperator - ручные действия и административное чтение
	RoleOperator = "operator"
)

// ValidateRole проверяет валидность роли
func ValidateRole(role string) error {
	switch role {
	case RoleService, RoleOperator:
		return nil
	default:
		return fmt.Errorf("invalid role %q", role)
	}
}
