package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// UserRole represents user roles
type UserRole string

const (
	UserRoleDonor        UserRole = "donor"
	UserRoleCharityAdmin UserRole = "charity_admin"
	UserRoleAdmin        UserRole = "admin"
)

// SelfRegistrable reports whether the role may sign up through the public flow
func (r UserRole) SelfRegistrable() bool {
	return r == UserRoleDonor || r == UserRoleCharityAdmin
}

// UsesSessionStore reports whether pending sign-ups for this role live in the
// client session instead of the shared pending_registrations table.
func (r UserRole) UsesSessionStore() bool {
	return r == UserRoleDonor
}

// UserStatus represents account status
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

// User represents a user entity
type User struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Role            UserRole   `json:"role"`
	Status          UserStatus `json:"status"`
	EmailVerifiedAt null.Time  `json:"emailVerifiedAt"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
