package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/freelance-hub/internal/domain"
	jwtinfra "github.com/freelance-hub/internal/infrastructure/jwt"
	"go.uber.org/zap"
)

type contextKey string

const claimsKey contextKey = "claims"

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// Auth returns middleware that validates the Bearer JWT and injects claims into context.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := BearerToken(r)
			if tokenStr == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			claims, err := verifier.Verify(tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// AccountLookup loads the account a token was issued for.
type AccountLookup interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// CheckAccount reports why the account behind userID may not use the API:
// 401 when it no longer exists, 403 when an admin disabled it.
func CheckAccount(ctx context.Context, users AccountLookup, userID string) (int, string) {
	u, err := users.Get(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusUnauthorized, "account not found"
	case err != nil:
		zap.L().Error("load token account", zap.String("user_id", userID), zap.Error(err))
		return http.StatusInternalServerError, "internal server error"
	case !u.Enable:
		return http.StatusForbidden, "account disabled"
	}
	return 0, ""
}

// Active rejects requests whose account was disabled or deleted after the
// token was issued. It must run after Auth.
func Active(users AccountLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if status, msg := CheckAccount(r.Context(), users, claims.UserID); status != 0 {
				writeJSONError(w, status, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken returns the token of an "Authorization: Bearer" header, or "".
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *jwtinfra.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext extracts JWT claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*jwtinfra.Claims)
	return c, ok
}
