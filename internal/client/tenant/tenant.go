// Package tenant derives the tenant identifier from the application location.
//
// A tenant is encoded either as the first label of a host with more than two
// labels (acme.catalog.example.com) or as the first path segment
// (example.com/acme/products). Resolution is a pure function of the URL.
package tenant

import (
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/dmitrijs2005/prodcat/internal/common"
)

// Resolve returns the tenant for the given host and path.
//
// The host label rule takes precedence over the path rule; "www" and an empty
// leading label (".example.com") are never a tenant. When neither rule matches the result is common.DefaultTenant.
func Resolve(host, path string) string {
	host = stripPort(host)

	labels := strings.Split(host, ".")
	if len(labels) > 2 && labels[0] != "www" && labels[0] != "" {
		return labels[0]
	}

	segments := strings.Split(path, "/")
	if len(segments) > 1 && segments[1] != "" {
		return segments[1]
	}

	return common.DefaultTenant
}

// FromURL resolves the tenant of u. An unknown location (nil URL, or no host
// and no path) yields "", which callers treat as "do not send a tenant".
func FromURL(u *url.URL) string {
	if u == nil || (u.Host == "" && u.Path == "") {
		return ""
	}
	return Resolve(u.Host, u.Path)
}

// IsSendable reports whether t should be attached to backend requests.
func IsSendable(t string) bool {
	return t != "" && t != common.DefaultTenant
}

// Realm maps a tenant to its identity-provider realm: every real tenant has
// its own "<tenant>-realm", the default tenant uses fallback.
func Realm(t, fallback string) string {
	if IsSendable(t) {
		return t + "-realm"
	}
	return fallback
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// Resolver holds the current application location. The CLI replaces it when
// the user switches tenant; the API client reads it on every request.
type Resolver struct {
	mu       sync.RWMutex
	location *url.URL
}

func NewResolver(location *url.URL) *Resolver {
	return &Resolver{location: location}
}

// ParseResolver builds a Resolver from a raw URL. An empty string gives a
// resolver with an unknown location.
func ParseResolver(raw string) (*Resolver, error) {
	if raw == "" {
		return NewResolver(nil), nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return NewResolver(u), nil
}

func (r *Resolver) SetLocation(u *url.URL) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.location = u
}

func (r *Resolver) Location() *url.URL {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.location == nil {
		return nil
	}
	u := *r.location
	return &u
}

// Tenant resolves the tenant of the current location.
func (r *Resolver) Tenant() string {
	return FromURL(r.Location())
}
