package choiceview

import (
	"errors"
	"fmt"
)

// ErrMissingLocation is returned when a 201 response carries no Location header.
var ErrMissingLocation = errors.New("session created without location header")

// ErrMissingStatus is returned when a session representation has no status.
var ErrMissingStatus = errors.New("session representation has no status")

// StartupError reports that the remote session could not be started.
type StartupError struct {
	StatusCode int
	Err        error
}

func (e *StartupError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("cannot start session - status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("cannot start session: %v", e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// TransportError reports a network failure or an unexpected status code.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status code %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError reports a malformed response body.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: failed to decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsStartupError reports whether err is, or wraps, a StartupError.
func IsStartupError(err error) bool {
	var target *StartupError
	return errors.As(err, &target)
}
