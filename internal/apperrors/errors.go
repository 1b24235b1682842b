// internal/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNotFound           = errors.New("not found")
	ErrUpstream           = errors.New("analysis server error")
	ErrPersistence        = errors.New("persistence error")
)

// UpstreamError describes a failed call to the AI analysis server.
// StatusCode is zero when the server could not be reached.
type UpstreamError struct {
	Stage      string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s: analysis server returned %d: %s", e.Stage, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: analysis server returned %d", e.Stage, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	default:
		return e.Stage + ": analysis server error"
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// ValidationError carries a message that is safe to return to the client.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Validation(msg string) error {
	return &ValidationError{Msg: msg}
}
