package auth

import (
	"context"
	"sync"
)

// Sessions owns the Session of the active realm. Switching realm stops the
// refresh loop of the previous session and starts one for the new session;
// the previous session's stored refresh token is kept, so switching back
// restores it.
type Sessions struct {
	base context.Context
	open func(realm string) *Session

	mu   sync.RWMutex
	cur  *Session
	stop context.CancelFunc
}

// NewSessions returns an empty manager. open builds an unstarted Session for
// a realm; refresh loops run until base is done or Close is called.
func NewSessions(base context.Context, open func(realm string) *Session) *Sessions {
	return &Sessions{base: base, open: open}
}

// Switch makes realm the active realm and restores any session stored for
// it. Switching to the active realm is a no-op.
func (m *Sessions) Switch(ctx context.Context, realm string) (*Session, error) {
	if cur := m.Current(); cur != nil && cur.Realm() == realm {
		return cur, nil
	}

	s := m.open(realm)
	if err := s.Init(ctx); err != nil {
		return nil, err
	}

	runCtx, stop := context.WithCancel(m.base)

	m.mu.Lock()
	if m.stop != nil {
		m.stop()
	}
	m.cur, m.stop = s, stop
	m.mu.Unlock()

	go func() { _ = s.Run(runCtx) }()
	return s, nil
}

// Current returns the active session, nil before the first Switch.
func (m *Sessions) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// Token returns the access token of the active session or "".
func (m *Sessions) Token() string {
	if cur := m.Current(); cur != nil {
		return cur.Token()
	}
	return ""
}

// Close stops the active refresh loop.
func (m *Sessions) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		m.stop()
		m.stop = nil
	}
}
