package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rookgm/grocerycart/internal/auth"
	"github.com/rookgm/grocerycart/internal/models"
)

type AuthService interface {
	// LoginSeller checks the seller credentials and returns a token
	LoginSeller(ctx context.Context, email, password string) (string, error)
}

// AuthHandler represents HTTP handler for seller authentication
type AuthHandler struct {
	svc AuthService
}

// NewAuthHandler creates new AuthHandler instance
func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginSeller authenticates the seller and sets the seller cookie
// 200 — logged in;
// 400 — invalid request;
// 401 — invalid credentials;
// 500 — internal server error.
func (ah *AuthHandler) LoginSeller() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
			writeMessage(w, http.StatusBadRequest, "bad request")
			return
		}
		defer r.Body.Close()

		if req.Email == "" || req.Password == "" {
			writeMessage(w, http.StatusBadRequest, "email and password are required")
			return
		}

		token, err := ah.svc.LoginSeller(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, models.ErrInvalidCredentials) {
				writeMessage(w, http.StatusUnauthorized, "Invalid Credentials")
				return
			}
			writeError(w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     sellerCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
			MaxAge:   int(auth.TokenTTL.Seconds()),
		})

		writeMessage(w, http.StatusOK, "Logged In")
	}
}

// LogoutSeller clears the seller cookie
func (ah *AuthHandler) LogoutSeller() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     sellerCookie,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			MaxAge:   -1,
		})

		writeMessage(w, http.StatusOK, "Logged Out")
	}
}
