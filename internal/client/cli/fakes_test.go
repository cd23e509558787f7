package cli

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/dmitrijs2005/prodcat/internal/client/auth"
	"github.com/dmitrijs2005/prodcat/internal/client/models"
	"github.com/dmitrijs2005/prodcat/internal/client/query"
	"github.com/dmitrijs2005/prodcat/internal/client/tenant"
	"github.com/dmitrijs2005/prodcat/internal/common"
	"github.com/stretchr/testify/require"
)

// ---- product service ----

type fakeService struct {
	products map[int64]models.Product
	page     *models.Page[models.Product]
	cats     []string
	err      error

	lists      []models.ProductFilter
	created    []models.ProductInput
	patches    []models.ProductPatch
	optimistic []models.ProductPatch
	deleted    []int64
	resets     int
}

func newFakeService() *fakeService {
	return &fakeService{products: map[int64]models.Product{}}
}

func (f *fakeService) List(ctx context.Context, filter models.ProductFilter) (*models.Page[models.Product], error) {
	f.lists = append(f.lists, filter)
	if f.err != nil {
		return nil, f.err
	}
	if f.page != nil {
		return f.page, nil
	}
	return &models.Page[models.Product]{}, nil
}

func (f *fakeService) Get(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &p, nil
}

func (f *fakeService) Categories(ctx context.Context) ([]string, error) {
	return f.cats, f.err
}

func (f *fakeService) Create(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	f.created = append(f.created, in)
	if f.err != nil {
		return nil, f.err
	}
	p := models.Product{ID: int64(100 + len(f.created)), Name: in.Name, Price: in.Price, Category: in.Category, Status: in.Status}
	f.products[p.ID] = p
	return &p, nil
}

func (f *fakeService) Update(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error) {
	f.patches = append(f.patches, patch)
	if f.err != nil {
		return nil, f.err
	}
	p := patch.Apply(f.products[id])
	f.products[id] = p
	return &p, nil
}

func (f *fakeService) Delete(ctx context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeService) UpdateOptimistically(ctx context.Context, id int64, patch models.ProductPatch) (*models.Product, error) {
	f.optimistic = append(f.optimistic, patch)
	if f.err != nil {
		return nil, f.err
	}
	p := patch.Apply(f.products[id])
	return &p, nil
}

func (f *fakeService) Subscribe(key query.Key) (<-chan query.Event, func()) {
	ch := make(chan query.Event)
	return ch, func() {}
}

func (f *fakeService) Reset() { f.resets++ }

// ---- sessions ----

type fakeSession struct {
	realm    string
	identity *models.Identity
	loginErr error
	events   chan auth.Event

	loginUser string
	loginPass string
}

func newFakeSession(realm string) *fakeSession {
	return &fakeSession{realm: realm, events: make(chan auth.Event, 4)}
}

func (s *fakeSession) Realm() string { return s.realm }

func (s *fakeSession) Login(ctx context.Context, username string, password []byte) (*models.Identity, error) {
	s.loginUser, s.loginPass = username, string(password)
	common.WipeByteArray(password)
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	s.identity = &models.Identity{Username: username, Roles: []string{"user"}}
	return s.identity.Clone(), nil
}

func (s *fakeSession) Logout(ctx context.Context) error {
	s.identity = nil
	return nil
}

func (s *fakeSession) Identity() *models.Identity { return s.identity.Clone() }
func (s *fakeSession) Authenticated() bool        { return s.identity != nil }
func (s *fakeSession) Events() <-chan auth.Event  { return s.events }

func (s *fakeSession) Require(role string) error {
	if s.identity == nil {
		return common.ErrNotAuthenticated
	}
	if !s.identity.HasRole(role) {
		return common.ErrForbidden
	}
	return nil
}

type fakeSessions struct {
	byRealm  map[string]*fakeSession
	cur      *fakeSession
	switches []string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byRealm: map[string]*fakeSession{}}
}

func (m *fakeSessions) get(realm string) *fakeSession {
	s, ok := m.byRealm[realm]
	if !ok {
		s = newFakeSession(realm)
		m.byRealm[realm] = s
	}
	return s
}

func (m *fakeSessions) Current() Session {
	if m.cur == nil {
		return nil
	}
	return m.cur
}

func (m *fakeSessions) Switch(ctx context.Context, realm string) (Session, error) {
	m.switches = append(m.switches, realm)
	m.cur = m.get(realm)
	return m.cur, nil
}

// ---- preferences ----

type fakePrefs map[string]string

func (p fakePrefs) Preference(ctx context.Context, key string) (string, error) {
	return p[key], nil
}

func (p fakePrefs) SetPreference(ctx context.Context, key, value string) error {
	p[key] = value
	return nil
}

// ---- app ----

type testApp struct {
	*App
	svc      *fakeService
	sessions *fakeSessions
	prefs    fakePrefs
	out      *bytes.Buffer
}

const defaultRealm = "microservice-realm"

func newTestApp(t *testing.T, location string, input ...string) *testApp {
	t.Helper()
	u, err := url.Parse(location)
	require.NoError(t, err)

	ta := &testApp{
		svc:      newFakeService(),
		sessions: newFakeSessions(),
		prefs:    fakePrefs{},
		out:      &bytes.Buffer{},
	}
	var in io.Reader = strings.NewReader(strings.Join(input, "\n") + "\n")
	ta.App = NewApp(ta.svc, ta.sessions, tenant.NewResolver(u), defaultRealm,
		WithIO(in, ta.out), WithPreferences(ta.prefs))

	_, err = ta.sessions.Switch(context.Background(), ta.currentRealm())
	require.NoError(t, err)
	return ta
}

func (ta *testApp) loginAs(username string, roles ...string) {
	ta.sessions.cur.identity = &models.Identity{Username: username, Roles: roles}
}
