// Package auth holds the client's authentication session and the identity
// provider it talks to.
//
// The identity provider is an external collaborator behind IdentityProvider;
// Keycloak is the implementation used in practice. Session tracks the
// current identity, keeps the access token fresh from a single refresh loop
// and persists the refresh token so that a later start can restore it.
package auth

import (
	"context"
	"time"
)

// TokenSet is an OIDC token endpoint response.
type TokenSet struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
}

// expiry returns when the access token stops being valid, falling back to
// ExpiresIn when the token itself carries no exp claim.
func (t *TokenSet) expiry(claimed, now time.Time) time.Time {
	if !claimed.IsZero() {
		return claimed
	}
	if t.ExpiresIn > 0 {
		return now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return time.Time{}
}

// IdentityProvider issues and revokes tokens for one realm.
type IdentityProvider interface {
	Login(ctx context.Context, username string, password []byte) (*TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenSet, error)
	Logout(ctx context.Context, refreshToken string) error
}
