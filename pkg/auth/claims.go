package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID          uuid.UUID
	ActiveProfileID *uuid.UUID
	JTI             string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID          uuid.UUID  `json:"user_id"`
	ActiveProfileID *uuid.UUID `json:"active_profile_id,omitempty"`
	jwt.RegisteredClaims
}
