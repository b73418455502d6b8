package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const claimsKey contextKey = "admin_claims"

// Middleware rejects requests without a valid admin bearer token.
func (v *Verifier) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := v.Validate(strings.TrimPrefix(header, "Bearer "))
			switch {
			case err == nil:
			case errors.Is(err, ErrNotAdmin):
				logger.Warn("Non-admin user rejected", "email", claims.emailOrEmpty(), "path", r.URL.Path)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			case errors.Is(err, ErrNoSecret):
				logger.Error("Admin request rejected: AUTH_JWT_SECRET not configured", "path", r.URL.Path)
				http.Error(w, "admin access is not configured", http.StatusServiceUnavailable)
				return
			default:
				logger.Debug("Invalid admin token", "path", r.URL.Path, "error", err)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (c *Claims) emailOrEmpty() string {
	if c == nil {
		return ""
	}
	return c.Email
}

// AdminEmail returns the authenticated admin's address from the request context.
func AdminEmail(r *http.Request) string {
	if c, ok := r.Context().Value(claimsKey).(*Claims); ok {
		return c.Email
	}
	return ""
}
