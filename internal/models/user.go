package models

import (
	"strings"
	"time"
)

// UserRole is the closed set of presentation-layer role labels.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleOrgManager UserRole = "org_manager"
	RoleSubstitute UserRole = "substitute"
)

// Valid reports whether the role is one of the known labels.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrgManager, RoleSubstitute:
		return true
	default:
		return false
	}
}

// User is an account of the admin panel.
type User struct {
	ID             string    `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	Email          string    `db:"email" json:"email"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Role           UserRole  `db:"role" json:"role"`
	OrganizationID *string   `db:"organization_id" json:"organization_id,omitempty"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// FullName renders "first last" without stray spaces.
func (u User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// CreateUserRequest is the payload for create_user.
type CreateUserRequest struct {
	Username       string   `json:"username" validate:"required,min=3,max=64"`
	Password       string   `json:"password" validate:"required,min=6,max=72"`
	Email          string   `json:"email" validate:"required,email"`
	FirstName      string   `json:"first_name" validate:"required,max=100"`
	LastName       string   `json:"last_name" validate:"required,max=100"`
	Role           UserRole `json:"role" validate:"required,oneof=admin org_manager substitute"`
	OrganizationID *string  `json:"organization_id,omitempty" validate:"omitempty,max=64"`
}
