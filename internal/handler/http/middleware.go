package handler

import (
	"context"
	"net/http"

	"github.com/rookgm/grocerycart/internal/models"
	"github.com/rookgm/grocerycart/internal/service"
)

type contextKey string

const (
	authPayloadKey contextKey = "auth_payload"
)

// cookie names
const (
	authCookie   = "auth_token"
	sellerCookie = "sellerToken"
)

// AuthMiddleware gets the user token from the cookie and passes it to the context
func AuthMiddleware(ts service.TokenService) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, ok := verifyCookie(r, authCookie, ts)
			if !ok || payload.UserID == "" {
				writeMessage(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), authPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth passes the user token to the context if there is a valid one.
// Requests without it continue as guests.
func OptionalAuth(ts service.TokenService) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, ok := verifyCookie(r, authCookie, ts)
			if !ok {
				// a seller may act on any order
				payload, ok = verifyCookie(r, sellerCookie, ts)
				if ok && payload.Role != models.RoleSeller {
					ok = false
				}
			}
			if ok {
				r = r.WithContext(context.WithValue(r.Context(), authPayloadKey, payload))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SellerOnly requires a seller token
func SellerOnly(ts service.TokenService) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, ok := verifyCookie(r, sellerCookie, ts)
			if !ok || payload.Role != models.RoleSeller {
				writeMessage(w, http.StatusUnauthorized, "not authorized")
				return
			}

			ctx := context.WithValue(r.Context(), authPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verifyCookie(r *http.Request, name string, ts service.TokenService) (*models.TokenPayload, bool) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	payload, err := ts.VerifyToken(cookie.Value)
	if err != nil {
		return nil, false
	}
	return payload, true
}

// getAuthPayload extracts authorization token payload from context
func getAuthPayload(ctx context.Context, key contextKey) (*models.TokenPayload, bool) {
	payload, ok := ctx.Value(key).(*models.TokenPayload)
	return payload, ok && payload != nil
}

// actorFrom returns the caller of the request. Requests without a token are guests.
func actorFrom(r *http.Request) models.Actor {
	payload, ok := getAuthPayload(r.Context(), authPayloadKey)
	if !ok {
		return models.Actor{}
	}
	return models.Actor{UserID: payload.UserID, Role: payload.Role}
}
