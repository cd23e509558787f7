package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/prodcat/internal/client/auth"
	"github.com/dmitrijs2005/prodcat/internal/client/metrics"
	"github.com/dmitrijs2005/prodcat/internal/client/models"
	"github.com/dmitrijs2005/prodcat/internal/client/services"
	"github.com/dmitrijs2005/prodcat/internal/client/tenant"
	"github.com/dmitrijs2005/prodcat/internal/common"
	"github.com/dmitrijs2005/prodcat/internal/logging"
)

// Session is the part of auth.Session the REPL uses.
type Session interface {
	Realm() string
	Login(ctx context.Context, username string, password []byte) (*models.Identity, error)
	Logout(ctx context.Context) error
	Identity() *models.Identity
	Authenticated() bool
	Require(role string) error
	Events() <-chan auth.Event
}

// SessionManager hands out the session of the active realm.
type SessionManager interface {
	Current() Session
	Switch(ctx context.Context, realm string) (Session, error)
}

// AuthSessions adapts *auth.Sessions to SessionManager.
func AuthSessions(m *auth.Sessions) SessionManager {
	return authSessions{m: m}
}

type authSessions struct {
	m *auth.Sessions
}

func (a authSessions) Current() Session {
	if s := a.m.Current(); s != nil {
		return s
	}
	return nil
}

func (a authSessions) Switch(ctx context.Context, realm string) (Session, error) {
	s, err := a.m.Switch(ctx, realm)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Preferences remembers small bits of client state between runs.
type Preferences interface {
	Preference(ctx context.Context, key string) (string, error)
	SetPreference(ctx context.Context, key, value string) error
}

// StatsFunc reports request and cache counters.
type StatsFunc func() (metrics.Snapshot, error)

type App struct {
	service  services.ProductService
	sessions SessionManager
	resolver *tenant.Resolver
	realm    string
	prefs    Preferences
	stats    StatsFunc
	log      logging.Logger
	reader   *bufio.Reader
	out      io.Writer

	// filter is the list filter in use; it survives failed requests.
	filter models.ProductFilter
	// draft holds the form values of an add that failed.
	draft *models.ProductInput
}

type Option func(*App)

func WithPreferences(p Preferences) Option {
	return func(a *App) { a.prefs = p }
}

func WithStats(f StatsFunc) Option {
	return func(a *App) { a.stats = f }
}

func WithLogger(l logging.Logger) Option {
	return func(a *App) { a.log = l }
}

func WithIO(r io.Reader, w io.Writer) Option {
	return func(a *App) {
		a.reader = bufio.NewReader(r)
		a.out = w
	}
}

// NewApp builds the REPL. defaultRealm is the identity realm of the default
// tenant; every other tenant uses its own realm.
func NewApp(service services.ProductService, sessions SessionManager, resolver *tenant.Resolver, defaultRealm string, opts ...Option) *App {
	a := &App{
		service:  service,
		sessions: sessions,
		resolver: resolver,
		realm:    defaultRealm,
		log:      logging.Discard(),
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		filter:   models.DefaultFilter(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run activates the session of the current tenant and runs the REPL until
// the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	if _, err := a.sessions.Switch(ctx, a.currentRealm()); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	fmt.Fprintln(a.out, "Product catalog CLI (type 'help' for commands)")
	if s := a.session(); s != nil && s.Authenticated() {
		fmt.Fprintf(a.out, "Welcome back, %s\n", s.Identity().Username)
	}

	runREPL(ctx, a, a.status, a.reader)
	return nil
}

func (a *App) currentRealm() string {
	return tenant.Realm(a.resolver.Tenant(), a.realm)
}

func (a *App) session() Session {
	return a.sessions.Current()
}

func (a *App) isLoggedIn() bool {
	s := a.session()
	return s != nil && s.Authenticated()
}

// status renders the prompt prefix and reports session changes that
// happened since the last prompt, e.g. an expired refresh token.
func (a *App) status() string {
	s := a.session()
	if s == nil {
		return tenantName(a.resolver.Tenant())
	}

drain:
	for {
		select {
		case ev := <-s.Events():
			if ev.Type == auth.EventExpired {
				fmt.Fprintln(a.out, "Session expired, please log in again")
			}
		default:
			break drain
		}
	}

	t := tenantName(a.resolver.Tenant())
	if id := s.Identity(); id != nil {
		return id.Username + "@" + t
	}
	return t
}

func tenantName(t string) string {
	if t == "" {
		return common.DefaultTenant
	}
	return t
}

func (a *App) requireAdmin() error {
	s := a.session()
	if s == nil {
		return common.ErrNotAuthenticated
	}
	return s.Require(models.RoleProductAdmin)
}
