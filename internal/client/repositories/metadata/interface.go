// Package metadata stores client preferences that outlive a session, such as
// the last username, realm and location used.
package metadata

import (
	"context"
)

// Known keys. Set rejects any other key.
const (
	KeyLastUsername = "last_username"
	KeyLastRealm    = "last_realm"
	KeyLastLocation = "last_location"
)

var knownKeys = map[string]bool{
	KeyLastUsername: true,
	KeyLastRealm:    true,
	KeyLastLocation: true,
}

// Known reports whether key is a preference the client records.
func Known(key string) bool {
	return knownKeys[key]
}

type Repository interface {
	// Get returns "" for a preference never set.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// RememberLogin records username and realm as the last ones used.
	RememberLogin(ctx context.Context, username, realm string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
