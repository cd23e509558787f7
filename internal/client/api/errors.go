package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/prodcat/internal/common"
)

// Kind classifies an APIError.
type Kind int

const (
	KindHTTP Kind = iota
	KindTransport
	KindNotFound
	KindValidation
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport failure"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation failed"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "http error"
	}
}

// APIError is the only error kind the client returns. Status is 0 when the
// request never got a response.
type APIError struct {
	Status  int
	Message string
	Kind    Kind
	Err     error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() []error {
	errs := []error{common.ErrAPI}
	switch e.Kind {
	case KindTransport:
		errs = append(errs, common.ErrTransport)
	case KindNotFound:
		errs = append(errs, common.ErrNotFound)
	case KindValidation:
		errs = append(errs, common.ErrValidation)
	case KindUnauthorized:
		errs = append(errs, common.ErrUnauthorized)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	default:
		return KindHTTP
	}
}

func transportError(err error) *APIError {
	return &APIError{Kind: KindTransport, Message: err.Error(), Err: err}
}

func validationError(err error) *APIError {
	return &APIError{Kind: KindValidation, Message: err.Error(), Err: err}
}

// IsRetryable reports whether a fetch that failed with err may succeed if
// repeated: transport failures and 5xx responses. Cancellation never is.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Kind == KindTransport || apiErr.Status >= http.StatusInternalServerError
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
