package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sie-engine/siechat/internal/api"
	"github.com/sie-engine/siechat/internal/domain"
)

type contextKey string

const CallerKey contextKey = "caller"

// Caller identifies the authenticated API key on a request, if any.
type Caller struct {
	KeyID string
	Name  string
	Role  domain.Role
}

// KeyValidator resolves a bearer token to the API key it belongs to.
type KeyValidator interface {
	ValidateToken(ctx context.Context, token string) (*domain.APIKey, error)
}

// BearerAuth resolves an optional Authorization header into a Caller on the
// request context. It never rejects on its own: routes with public access
// run fine without a token, and per-route policy decides what an anonymous
// caller may do. A present-but-invalid token is still a hard 401 so clients
// notice bad credentials instead of silently downgrading to anonymous.
func BearerAuth(validator KeyValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			key, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			caller := &Caller{KeyID: key.ID, Name: key.Name, Role: key.Role}
			ctx := context.WithValue(r.Context(), CallerKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCaller returns the authenticated caller from context, or nil for an
// anonymous request.
func GetCaller(ctx context.Context) *Caller {
	caller, _ := ctx.Value(CallerKey).(*Caller)
	return caller
}

// RequireEditor guards routes behind the edit-content capability.
func RequireEditor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := GetCaller(r.Context())
		if caller == nil {
			api.Error(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		if !caller.Role.CanEdit() {
			api.Error(w, http.StatusForbidden, "editor role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
