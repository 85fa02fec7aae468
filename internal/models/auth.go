package models

import "github.com/golang-jwt/jwt/v5"

// API token roles.
const (
	RoleAdmin     = "admin"
	RoleScheduler = "scheduler"
	RoleViewer    = "viewer"
)

// APIClaims are the JWT claims carried by scheduling API tokens.
type APIClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenRequest asks for a new API token.
type TokenRequest struct {
	Subject string `json:"subject" validate:"required"`
	Role    string `json:"role" validate:"omitempty,oneof=admin scheduler viewer"`
}

// TokenResponse carries an issued API token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}
