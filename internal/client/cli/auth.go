package cli

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/prodcat/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/prodcat/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials and authenticates against the realm of the
// current tenant. The last username is offered as the default.
func (a *App) Login(ctx context.Context) error {
	s := a.session()
	if s == nil {
		return common.ErrNotAuthenticated
	}
	if s.Authenticated() {
		fmt.Fprintf(a.out, "Already logged in as %s\n", s.Identity().Username)
		return nil
	}

	userName, err := GetWithDefault(a.reader, "Enter username", a.preference(ctx, metadata.KeyLastUsername), a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	id, err := s.Login(ctx, userName, password)
	if err != nil {
		return err
	}

	a.service.Reset()
	a.log.Info(ctx, "logged in", "username", id.Username, "realm", s.Realm())
	fmt.Fprintf(a.out, "Logged in as %s\n", id.Username)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	s := a.session()
	if s == nil || !s.Authenticated() {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	if err := s.Logout(ctx); err != nil {
		return err
	}
	a.service.Reset()
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	s := a.session()
	if s == nil || !s.Authenticated() {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	id := s.Identity()
	fmt.Fprintf(a.out, "User:    %s\n", id.Username)
	if id.Email != "" {
		fmt.Fprintf(a.out, "Email:   %s\n", id.Email)
	}
	fmt.Fprintf(a.out, "Realm:   %s\n", s.Realm())
	fmt.Fprintf(a.out, "Roles:   %s\n", strings.Join(id.Roles, ", "))
	if !id.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, "Expires: %s\n", id.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// Tenant shows the current location or switches to a new one. A switch to
// another tenant drops every cached query and activates that tenant's realm.
func (a *App) Tenant(ctx context.Context, args []string) error {
	if len(args) == 0 {
		loc := "(unknown)"
		if u := a.resolver.Location(); u != nil {
			loc = u.String()
		}
		fmt.Fprintf(a.out, "Location: %s\nTenant:   %s\nRealm:    %s\n", loc, tenantName(a.resolver.Tenant()), a.currentRealm())
		return nil
	}
	if len(args) > 1 {
		return usage("tenant [url]")
	}

	u, err := parseLocation(args[0])
	if err != nil {
		return err
	}

	before := a.resolver.Tenant()
	a.resolver.SetLocation(u)
	after := a.resolver.Tenant()

	if after != before {
		a.service.Reset()
		if _, err := a.sessions.Switch(ctx, a.currentRealm()); err != nil {
			return err
		}
	}
	if a.prefs != nil {
		if err := a.prefs.SetPreference(ctx, metadata.KeyLastLocation, u.String()); err != nil {
			a.log.Warn(ctx, "failed to remember location", "error", err)
		}
	}

	fmt.Fprintf(a.out, "Tenant: %s (realm %s)\n", tenantName(after), a.currentRealm())
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not logged in for this tenant")
	}
	return nil
}

// parseLocation accepts a full URL or a bare host[/path].
func parseLocation(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: bad location: %w", common.ErrValidation, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: location %q has no host", common.ErrValidation, raw)
	}
	return u, nil
}

func (a *App) preference(ctx context.Context, key string) string {
	if a.prefs == nil {
		return ""
	}
	v, err := a.prefs.Preference(ctx, key)
	if err != nil {
		a.log.Warn(ctx, "failed to read preference", "key", key, "error", err)
		return ""
	}
	return v
}
