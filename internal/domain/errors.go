package domain

import (
	"errors"
	"fmt"
)

// ErrTokenFetchFailed is matched by every *AuthError via errors.Is.
var ErrTokenFetchFailed = errors.New("token fetch failed")

// AuthError is returned when no token could be obtained from the identity endpoint.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token fetch failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("token fetch failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrTokenFetchFailed }

type APIErrorKind string

const (
	APIErrorHTTP   APIErrorKind = "http"
	APIErrorDecode APIErrorKind = "decode"
)

// APIError reports a failed Helix call. Kind tells transport/status failures
// apart from malformed bodies.
type APIError struct {
	Kind       APIErrorKind
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("helix %s: %s error (status %d): %v", e.Endpoint, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("helix %s: %s error: %v", e.Endpoint, e.Kind, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }
