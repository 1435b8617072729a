package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for the login command.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued access token and the user.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	IssuedAt    time.Time `json:"issued_at"`
	User        User      `json:"user"`
}

// JWTClaims is the access token payload. Only role labels are enforced.
type JWTClaims struct {
	UserID         string   `json:"user_id"`
	Username       string   `json:"username"`
	Role           UserRole `json:"role"`
	OrganizationID string   `json:"organization_id,omitempty"`
	jwt.RegisteredClaims
}
