// Package sessions persists the last authenticated session per identity
// realm so the client can restore it on the next start.
//
// Only the refresh token is stored; access tokens are always obtained anew.
// Get on an unknown realm returns (nil, nil).
package sessions

import (
	"context"
	"time"
)

type Session struct {
	Realm        string
	Username     string
	RefreshToken string
	UpdatedAt    time.Time
}

type Repository interface {
	Get(ctx context.Context, realm string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, realm string) error
	Clear(ctx context.Context) error
}
