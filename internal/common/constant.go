// Package common contains shared constants, sentinel errors and small helpers
// used across the catalog client packages.
package common

const (
	// AuthorizationHeaderName carries the bearer access token on outbound requests.
	AuthorizationHeaderName = "Authorization"
	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "
	// RequestIDHeaderName correlates a single outbound request in logs.
	RequestIDHeaderName = "X-Request-ID"

	// TenantQueryParam is the query parameter that carries the tenant id.
	TenantQueryParam = "tenant"
	// DefaultTenant is returned by the resolver when no tenant is encoded in
	// the location. It is never sent to the backend.
	DefaultTenant = "default"
)
