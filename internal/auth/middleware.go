package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rshakya/taskhub-be/internal/models"
)

type contextKey string

const (
	// UserKey is the context key for the authenticated user.
	UserKey = contextKey("authUser")
	// TokenKey is the context key for the raw bearer token. Logout needs
	// the exact string to revoke the right session.
	TokenKey = contextKey("authToken")
)

// SessionResolver looks up the user that currently holds a token. A token
// whose session has been revoked resolves to nothing even if the JWT
// itself is still valid.
type SessionResolver interface {
	ResolveToken(token string) (models.User, error)
}

// UserFrom returns the authenticated user attached by Middleware.
func UserFrom(ctx context.Context) (models.User, bool) {
	u, ok := ctx.Value(UserKey).(models.User)
	return u, ok
}

// TokenFrom returns the raw bearer token attached by Middleware.
func TokenFrom(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(TokenKey).(string)
	return t, ok
}

// Middleware creates a middleware for protecting routes. It verifies the
// bearer token's signature, requires a live session holding that exact
// token, and attaches the resolved user and token to the request context.
func Middleware(m *Manager, sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string

			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					tokenStr = parts[1]
				}
			}

			if tokenStr == "" {
				unauthorized(w, "please authenticate")
				return
			}

			if _, err := m.Validate(tokenStr); err != nil {
				unauthorized(w, "please authenticate")
				return
			}

			user, err := sessions.ResolveToken(tokenStr)
			if err != nil {
				unauthorized(w, "please authenticate")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			ctx = context.WithValue(ctx, TokenKey, tokenStr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
