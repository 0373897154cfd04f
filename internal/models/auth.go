package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued access token and user info. Refresh is
// handled outside this service.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Viewer projects the claims onto the identity used by access evaluation.
func (c *JWTClaims) Viewer() *Viewer {
	if c == nil || c.UserID == "" {
		return nil
	}
	return &Viewer{ID: c.UserID, Role: c.Role, Name: c.FullName}
}

// AuthState is the snapshot an auth source hands to a course session.
// Loading means the identity is not yet known and policy must not be applied.
type AuthState struct {
	Viewer        *Viewer
	Token         string
	Authenticated bool
	Loading       bool
}
