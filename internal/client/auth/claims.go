package auth

import (
	"fmt"

	"github.com/dmitrijs2005/prodcat/internal/client/models"
	"github.com/dmitrijs2005/prodcat/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token claims the client reads.
type Claims struct {
	jwt.RegisteredClaims
	PreferredUsername string      `json:"preferred_username"`
	Email             string      `json:"email"`
	RealmAccess       RealmAccess `json:"realm_access"`
}

type RealmAccess struct {
	Roles []string `json:"roles"`
}

// ParseClaims decodes an access token without verifying its signature. The
// backend verifies every token it receives; the client only needs the
// identity and expiry it carries.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: parse access token: %w", common.ErrAuthFailure, err)
	}
	return claims, nil
}

func (c *Claims) identity(ts *TokenSet) *models.Identity {
	id := &models.Identity{
		UserID:       c.Subject,
		Username:     c.PreferredUsername,
		Email:        c.Email,
		Roles:        append([]string(nil), c.RealmAccess.Roles...),
		AccessToken:  ts.AccessToken,
		RefreshToken: ts.RefreshToken,
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}
