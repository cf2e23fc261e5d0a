package service

import (
	"context"
	"strings"

	"github.com/rookgm/grocerycart/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type TokenService interface {
	CreateToken(payload *models.TokenPayload) (string, error)
	VerifyToken(tokenString string) (*models.TokenPayload, error)
}

// AuthService authenticates the store seller.
type AuthService struct {
	ts           TokenService
	sellerEmail  string
	passwordHash []byte
}

// NewAuthService creates new AuthService instance. passwordHash is a bcrypt hash.
func NewAuthService(ts TokenService, sellerEmail, passwordHash string) *AuthService {
	return &AuthService{
		ts:           ts,
		sellerEmail:  sellerEmail,
		passwordHash: []byte(passwordHash),
	}
}

// LoginSeller checks the seller credentials and returns a seller token.
func (as *AuthService) LoginSeller(_ context.Context, email, password string) (string, error) {
	if as.sellerEmail == "" || len(as.passwordHash) == 0 {
		return "", models.ErrInvalidCredentials
	}
	if !strings.EqualFold(strings.TrimSpace(email), as.sellerEmail) {
		return "", models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(as.passwordHash, []byte(password)); err != nil {
		return "", models.ErrInvalidCredentials
	}

	return as.ts.CreateToken(&models.TokenPayload{Email: as.sellerEmail, Role: models.RoleSeller})
}
