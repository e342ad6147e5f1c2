package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cadenlabs/brandgov/internal/api"
	"github.com/cadenlabs/brandgov/internal/domain"
)

type contextKey string

const (
	PrincipalKey       contextKey = "principal"
	principalHolderKey contextKey = "principal_holder"
)

// principalHolder lets middleware wrapped around the auth layer observe
// the principal after their inner handlers return. context.WithValue
// only flows inward, so the outer middlewares install a shared pointer
// that APIKeyAuth fills once authentication succeeds.
type principalHolder struct {
	principal *domain.Principal
}

// ensurePrincipalHolder installs a holder into the request context,
// reusing one installed by an earlier middleware in the chain.
func ensurePrincipalHolder(r *http.Request) (*http.Request, *principalHolder) {
	if holder, ok := r.Context().Value(principalHolderKey).(*principalHolder); ok {
		return r, holder
	}
	holder := &principalHolder{}
	ctx := context.WithValue(r.Context(), principalHolderKey, holder)
	return r.WithContext(ctx), holder
}

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Principal, error)
}

// APIKeyAuth resolves the bearer token to a principal and stores it in the
// request context. All role checks downstream run against that principal.
func APIKeyAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			principal, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			if holder, ok := r.Context().Value(principalHolderKey).(*principalHolder); ok {
				holder.principal = principal
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal returns the authenticated principal from the context, or nil
// on unauthenticated routes.
func GetPrincipal(ctx context.Context) *domain.Principal {
	principal, _ := ctx.Value(PrincipalKey).(*domain.Principal)
	return principal
}
