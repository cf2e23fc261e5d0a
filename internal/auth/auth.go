// Package auth issues and verifies signed auth tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rookgm/grocerycart/internal/models"
)

// TokenTTL is the lifetime of issued tokens.
const TokenTTL = 7 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	jwt.RegisteredClaims
	Email string      `json:"email,omitempty"`
	Role  models.Role `json:"role"`
}

// AuthToken signs tokens with HMAC-SHA256.
type AuthToken struct {
	key []byte
	now func() time.Time
}

// NewAuthToken creates new AuthToken instance
func NewAuthToken(key []byte) *AuthToken {
	return &AuthToken{key: key, now: time.Now}
}

// CreateToken returns a signed token carrying payload. A zero ExpiresAt is set to now + TokenTTL.
func (at *AuthToken) CreateToken(payload *models.TokenPayload) (string, error) {
	now := at.now()
	expires := payload.ExpiresAt
	if expires.IsZero() {
		expires = now.Add(TokenTTL)
	}

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email: payload.Email,
		Role:  payload.Role,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(at.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// VerifyToken checks the token signature and expiry and returns its payload.
func (at *AuthToken) VerifyToken(tokenString string) (*models.TokenPayload, error) {
	var c claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	token, err := parser.ParseWithClaims(tokenString, &c, func(*jwt.Token) (interface{}, error) {
		return at.key, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	payload := &models.TokenPayload{
		UserID: c.Subject,
		Email:  c.Email,
		Role:   c.Role,
	}
	if c.ExpiresAt != nil {
		payload.ExpiresAt = c.ExpiresAt.Time
	}
	return payload, nil
}
