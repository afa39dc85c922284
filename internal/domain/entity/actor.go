package entity

import "github.com/google/uuid"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor описывает, кто выполняет действие. Передаётся явно в каждый вызов ядра,
// права на заказ или сделку проверяются заново независимо от middleware.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
