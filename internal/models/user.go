package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles. Administrators may provision enumerator accounts;
// enumerators register farmers.
const (
	RoleAdministrator = "administrator"
	RoleEnumerator    = "enumerator"
)

// User represents an authenticated operator of the registry.
// Users are referenced by farmer/farm/affiliation rows as creator/updater
// and are never cascade-deleted.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
