package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/prodcat/internal/client/repositories/sessions"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("test-signing-key")

// mintToken signs an access token the way the identity provider would.
func mintToken(t *testing.T, username string, exp time.Time, roles ...string) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "id-" + username,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		PreferredUsername: username,
		Email:             username + "@example.com",
		RealmAccess:       RealmAccess{Roles: roles},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testKey)
	require.NoError(t, err)
	return s
}

// ---- fake provider ----

type fakeProvider struct {
	mu sync.Mutex

	loginTokens   *TokenSet
	loginErr      error
	refreshTokens *TokenSet
	refreshErr    error
	logoutErr     error

	// When set, Refresh signals refreshing and waits for hold to close.
	refreshing chan struct{}
	hold       chan struct{}

	lastPassword     string
	lastRefreshToken string
	refreshCalls     int
	logoutCalls      int
	revoked          []string
}

func (f *fakeProvider) Login(ctx context.Context, username string, password []byte) (*TokenSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPassword = string(password)
	return f.loginTokens, f.loginErr
}

func (f *fakeProvider) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	if f.hold != nil {
		f.refreshing <- struct{}{}
		<-f.hold
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	f.lastRefreshToken = refreshToken
	return f.refreshTokens, f.refreshErr
}

func (f *fakeProvider) Logout(ctx context.Context, refreshToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	f.revoked = append(f.revoked, refreshToken)
	return f.logoutErr
}

func (f *fakeProvider) revokedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.revoked...)
}

func (f *fakeProvider) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// ---- fake store ----

type fakeStore struct {
	mu      sync.Mutex
	records map[string]*sessions.Session
	loadErr error
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*sessions.Session{}}
}

func (f *fakeStore) Load(ctx context.Context, realm string) (*sessions.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.records[realm], nil
}

func (f *fakeStore) Save(ctx context.Context, s *sessions.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := *s
	f.records[s.Realm] = &cp
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, realm string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, realm)
	return nil
}

func (f *fakeStore) get(realm string) *sessions.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[realm]
}

var errRejected = errors.New("rejected")
