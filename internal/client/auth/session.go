package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/prodcat/internal/client/models"
	"github.com/dmitrijs2005/prodcat/internal/client/repositories/sessions"
	"github.com/dmitrijs2005/prodcat/internal/common"
	"github.com/dmitrijs2005/prodcat/internal/logging"
)

// DefaultMinValidity is how long before expiry the access token is refreshed.
const DefaultMinValidity = 30 * time.Second

// errSuperseded means the identity changed while tokens were being obtained.
var errSuperseded = errors.New("session changed meanwhile")

// SessionStore persists the refresh token of the last session per realm.
type SessionStore interface {
	Load(ctx context.Context, realm string) (*sessions.Session, error)
	Save(ctx context.Context, s *sessions.Session) error
	Delete(ctx context.Context, realm string) error
}

type EventType int

const (
	EventLoggedIn EventType = iota
	EventRestored
	EventRefreshed
	EventLoggedOut
	// EventExpired means a refresh failed and the session was dropped.
	EventExpired
)

func (t EventType) String() string {
	switch t {
	case EventLoggedIn:
		return "logged in"
	case EventRestored:
		return "restored"
	case EventRefreshed:
		return "refreshed"
	case EventLoggedOut:
		return "logged out"
	case EventExpired:
		return "expired"
	}
	return "unknown"
}

type Event struct {
	Type     EventType
	Username string
	Err      error
}

type SessionOption func(*Session)

func WithStore(store SessionStore) SessionOption {
	return func(s *Session) { s.store = store }
}

func WithLogger(l logging.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

func WithMinValidity(d time.Duration) SessionOption {
	return func(s *Session) { s.minValidity = d }
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// Session is the authenticated state of the client for one realm. It is safe
// for concurrent use; Token always returns the current access token.
type Session struct {
	provider    IdentityProvider
	realm       string
	store       SessionStore
	log         logging.Logger
	minValidity time.Duration
	now         func() time.Time

	mu       sync.RWMutex
	identity *models.Identity
	// epoch changes whenever identity is installed or dropped.
	epoch uint64

	// persistMu orders store writes against drops.
	persistMu sync.Mutex

	wake   chan struct{}
	events chan Event
}

func NewSession(provider IdentityProvider, realm string, opts ...SessionOption) *Session {
	s := &Session{
		provider:    provider,
		realm:       realm,
		log:         logging.Discard(),
		minValidity: DefaultMinValidity,
		now:         time.Now,
		wake:        make(chan struct{}, 1),
		events:      make(chan Event, 8),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Realm() string {
	return s.realm
}

// Events reports session changes. Events are dropped when nobody reads them.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Init restores the session persisted for this realm, if any. A missing or
// unusable stored session leaves the client unauthenticated without error;
// only a store failure is returned.
func (s *Session) Init(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	rec, err := s.store.Load(ctx, s.realm)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if rec == nil || rec.RefreshToken == "" {
		return nil
	}

	epoch := s.currentEpoch()
	ts, err := s.provider.Refresh(ctx, rec.RefreshToken)
	if err != nil {
		s.log.Info(ctx, "stored session is no longer valid", "realm", s.realm, "error", err)
		if err := s.store.Delete(ctx, s.realm); err != nil {
			s.log.Warn(ctx, "failed to forget stale session", "error", err)
		}
		return nil
	}

	id, err := s.apply(ctx, ts, &epoch)
	if err != nil {
		return nil
	}
	s.notify(Event{Type: EventRestored, Username: id.Username})
	return nil
}

// Login authenticates with username and password and wipes password
// afterwards.
func (s *Session) Login(ctx context.Context, username string, password []byte) (*models.Identity, error) {
	defer common.WipeByteArray(password)

	ts, err := s.provider.Login(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	id, err := s.apply(ctx, ts, nil)
	if err != nil {
		return nil, err
	}
	s.notify(Event{Type: EventLoggedIn, Username: id.Username})
	return id.Clone(), nil
}

// Refresh exchanges the refresh token for new tokens now. On failure the
// session is dropped and the error matches common.ErrAuthFailure. Tokens
// obtained for an identity that was logged out or replaced meanwhile are
// discarded and the error matches common.ErrNotAuthenticated.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	id, epoch := s.identity, s.epoch
	s.mu.RUnlock()
	if id == nil {
		return common.ErrNotAuthenticated
	}

	ts, err := s.provider.Refresh(ctx, id.RefreshToken)
	if err == nil {
		_, err = s.apply(ctx, ts, &epoch)
	}
	if errors.Is(err, errSuperseded) {
		s.log.Debug(ctx, "discarding refreshed tokens", "username", id.Username)
		return fmt.Errorf("%w: %w", common.ErrNotAuthenticated, err)
	}
	if err != nil {
		if s.drop(ctx, &epoch) == nil {
			return fmt.Errorf("%w: %w", common.ErrNotAuthenticated, errSuperseded)
		}
		s.log.Warn(ctx, "token refresh failed, logging out", "error", err)
		s.notify(Event{Type: EventExpired, Username: id.Username, Err: err})
		return fmt.Errorf("%w: refresh: %w", common.ErrAuthFailure, err)
	}

	s.log.Debug(ctx, "access token refreshed", "username", id.Username)
	s.notify(Event{Type: EventRefreshed, Username: id.Username})
	return nil
}

// Logout destroys the identity and forgets the stored session. Revoking the
// session at the provider is best effort.
func (s *Session) Logout(ctx context.Context) error {
	id := s.drop(ctx, nil)
	if id == nil {
		return nil
	}
	if err := s.provider.Logout(ctx, id.RefreshToken); err != nil {
		s.log.Warn(ctx, "provider logout failed", "error", err)
	}
	s.notify(Event{Type: EventLoggedOut, Username: id.Username})
	return nil
}

// Identity returns a copy of the current identity, nil when logged out.
func (s *Session) Identity() *models.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.Clone()
}

// Token returns the current access token or "".
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.AccessToken
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

func (s *Session) HasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity.HasRole(role)
}

// Require returns nil when the user is logged in and holds role.
func (s *Session) Require(role string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return common.ErrNotAuthenticated
	}
	if role != "" && !s.identity.HasRole(role) {
		return fmt.Errorf("%w: %s required", common.ErrForbidden, role)
	}
	return nil
}

// Run keeps the access token fresh until ctx is done: it refreshes
// minValidity before expiry and re-plans whenever the identity changes.
// Run once per Session.
func (s *Session) Run(ctx context.Context) error {
	for {
		var (
			t     *time.Timer
			fired <-chan time.Time
		)
		if wait, ok := s.untilRefresh(); ok {
			t = time.NewTimer(wait)
			fired = t.C
		}

		select {
		case <-ctx.Done():
			if t != nil {
				t.Stop()
			}
			return ctx.Err()
		case <-s.wake:
			if t != nil {
				t.Stop()
			}
		case <-fired:
			_ = s.Refresh(ctx)
		}
	}
}

func (s *Session) untilRefresh() (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil || s.identity.ExpiresAt.IsZero() {
		return 0, false
	}
	left := s.identity.ExpiresAt.Sub(s.now())
	switch {
	case left <= 0:
		return 0, true
	case left <= s.minValidity:
		// Token lifetime shorter than minValidity: refresh halfway.
		return left / 2, true
	default:
		return left - s.minValidity, true
	}
}

func (s *Session) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// apply installs the identity carried by ts and persists its refresh token.
// When expect is set and the epoch moved past it, ts is revoked instead and
// errSuperseded is returned.
func (s *Session) apply(ctx context.Context, ts *TokenSet, expect *uint64) (*models.Identity, error) {
	claims, err := ParseClaims(ts.AccessToken)
	if err != nil {
		return nil, err
	}
	id := claims.identity(ts)
	id.ExpiresAt = ts.expiry(id.ExpiresAt, s.now())

	s.mu.Lock()
	if expect != nil && s.epoch != *expect {
		s.mu.Unlock()
		s.revoke(ctx, ts)
		return nil, errSuperseded
	}
	s.epoch++
	epoch := s.epoch
	s.identity = id
	s.mu.Unlock()
	s.signal()

	if s.store != nil && ts.RefreshToken != "" {
		s.persistMu.Lock()
		defer s.persistMu.Unlock()
		if s.currentEpoch() != epoch {
			return id, nil
		}
		rec := &sessions.Session{Realm: s.realm, Username: id.Username, RefreshToken: ts.RefreshToken}
		if err := s.store.Save(ctx, rec); err != nil {
			s.log.Warn(ctx, "failed to persist session", "error", err)
		}
	}
	return id, nil
}

// drop destroys the identity and forgets the stored session. It returns the
// dropped identity, or nil when there was none or, with expect set, when the
// epoch moved past it.
func (s *Session) drop(ctx context.Context, expect *uint64) *models.Identity {
	s.mu.Lock()
	id := s.identity
	if id == nil || (expect != nil && s.epoch != *expect) {
		s.mu.Unlock()
		return nil
	}
	s.epoch++
	s.identity = nil
	s.mu.Unlock()
	s.signal()

	if s.store != nil {
		s.persistMu.Lock()
		defer s.persistMu.Unlock()
		if err := s.store.Delete(ctx, s.realm); err != nil {
			s.log.Warn(ctx, "failed to forget session", "error", err)
		}
	}
	return id
}

func (s *Session) revoke(ctx context.Context, ts *TokenSet) {
	if ts.RefreshToken == "" {
		return
	}
	if err := s.provider.Logout(ctx, ts.RefreshToken); err != nil {
		s.log.Warn(ctx, "failed to revoke discarded session", "error", err)
	}
}

func (s *Session) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) notify(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}
