package common

import "errors"

// Callers should match these with errors.Is; concrete error types in the api
// and auth packages unwrap to them.
var (
	// API errors.
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrTransport    = errors.New("transport failure")
	ErrUnauthorized = errors.New("unauthorized")
	ErrAPI          = errors.New("api error")

	// Auth session errors.
	ErrAuthFailure      = errors.New("authentication failed")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("insufficient role")
)
