package auth

import (
	"context"
	"fmt"
	"net/http"
)

// Authenticator resolves the caller of a request and handles logout.
type Authenticator struct {
	verifier *Verifier
	revoked  RevocationStore
}

func NewAuthenticator(verifier *Verifier, revoked RevocationStore) *Authenticator {
	return &Authenticator{verifier: verifier, revoked: revoked}
}

// Authenticate returns the identity behind r. A token revoked by logout
// yields ErrRevokedToken even while its signature and expiry are valid.
func (a *Authenticator) Authenticate(r *http.Request) (Identity, error) {
	id, err := a.verifier.Verify(a.verifier.TokenFromRequest(r))
	if err != nil {
		return Identity{}, err
	}
	revoked, err := a.revoked.IsRevoked(r.Context(), id.TokenID)
	if err != nil {
		return Identity{}, fmt.Errorf("auth.Authenticator.Authenticate: %w", err)
	}
	if revoked {
		return Identity{}, ErrRevokedToken
	}
	return id, nil
}

// Logout revokes the identity's token until it expires.
func (a *Authenticator) Logout(ctx context.Context, id Identity) error {
	if err := a.revoked.Revoke(ctx, id.TokenID, id.ExpiresAt); err != nil {
		return fmt.Errorf("auth.Authenticator.Logout: %w", err)
	}
	return nil
}
