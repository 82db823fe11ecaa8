package backend

import (
	"errors"
	"fmt"
)

// AuthenticationError is returned when credentials are missing or rejected.
type AuthenticationError struct {
	Backend string
	Reason  string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: authentication failed: %s: %v", e.Backend, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: authentication failed: %s", e.Backend, e.Reason)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// TransportError covers network failures, non-2xx statuses and responses
// that could not be decoded into text.
type TransportError struct {
	Backend    string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: API returned status %d: %v", e.Backend, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Backend, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UnsupportedBackendError is returned by New for an unknown selector.
type UnsupportedBackendError struct {
	Name string
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf("unsupported backend %q (known: %v)", e.Name, Names())
}

var errEmptyResponse = errors.New("empty response from API")

func transportErr(backend string, status int, err error) error {
	return &TransportError{Backend: backend, StatusCode: status, Err: err}
}
