package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/infrastructure/auth"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// CallerContextKey is the context key for the authenticated caller
	CallerContextKey ContextKey = "caller"
)

// TokenVerifier is satisfied by *auth.JWTManager.
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// AuthMiddleware creates an authentication middleware
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Extract token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			// Parse Bearer token
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				if errors.Is(err, domain.ErrExpiredToken) {
					http.Error(w, "token has expired", http.StatusUnauthorized)
					return
				}
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), claims.Caller())))
		})
	}
}

// RequireRole creates a middleware that checks for a specific role.
// Requests without a caller in context are passed through as the anonymous
// caller, which is only the case when authentication is disabled.
func RequireRole(minRole domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := CallerFromContext(r.Context())

			// Check role permissions
			switch minRole {
			case domain.RoleAdmin:
				if caller.Role != domain.RoleAdmin {
					http.Error(w, "insufficient permissions", http.StatusForbidden)
					return
				}
			case domain.RoleOperator:
				if !caller.Role.CanMoveFunds() {
					http.Error(w, "insufficient permissions", http.StatusForbidden)
					return
				}
			case domain.RoleViewer:
				// All authenticated callers can view
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithCaller stores caller in ctx.
func WithCaller(ctx context.Context, caller domain.Caller) context.Context {
	return context.WithValue(ctx, CallerContextKey, caller)
}

// CallerFromContext returns the caller stored in ctx, or domain.AnonymousCaller.
func CallerFromContext(ctx context.Context) domain.Caller {
	if caller, ok := ctx.Value(CallerContextKey).(domain.Caller); ok {
		return caller
	}
	return domain.AnonymousCaller
}
