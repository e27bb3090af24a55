package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/wgrabowski/tabliczki-ztm/internal/auth"
)

// Authenticator resolves the caller of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (auth.Identity, error)
}

type identityKey struct{}

// NewIdentity attaches the caller's identity to the request context when the
// request carries a valid token. It never rejects a request: handlers decide
// whether an identity is required, after validating their own input.
func NewIdentity(a Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r)
			switch {
			case err == nil:
				r = r.WithContext(WithIdentity(r.Context(), id))
			case errors.Is(err, auth.ErrMissingToken):
			case errors.Is(err, auth.ErrInvalidToken),
				errors.Is(err, auth.ErrExpiredToken),
				errors.Is(err, auth.ErrRevokedToken):
				log.DebugContext(r.Context(), "token rejected", "error", err)
			default:
				log.WarnContext(r.Context(), "authentication unavailable", "error", err)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity attached by NewIdentity, if any.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	return id, ok
}
