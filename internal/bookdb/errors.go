package bookdb

import (
	"errors"
	"fmt"
	"strings"
)

// Status strings produced by the client itself.
const (
	StatusOK                      = "OK"
	StatusIncompleteConfiguration = "Incomplete configuration"
	StatusAuthenticationRequired  = "Authentication Required"
	StatusUnknownPage             = "Unknown Page"
)

// CodeFailure is the generic failure code.
const CodeFailure = -1

// ErrNotConfigured matches a StatusError caused by missing credentials or
// an unusable base URL.
var ErrNotConfigured = errors.New("bookdb: incomplete configuration")

// StatusError is returned by the typed query methods when the server (or
// the client configuration check) reported a non-OK status.
type StatusError struct {
	Command Command
	Status  string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bookdb %s: %s (code %d)", e.Command, e.Status, e.Code)
}

// Is lets errors.Is(err, ErrNotConfigured) detect configuration failures.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotConfigured && e.Status == StatusIncompleteConfiguration
}

// TransportError is a failure outside the handled status set: a network
// error or an HTTP status other than 401, 404, 500 and 503. It is fatal to
// the operation that issued the query.
type TransportError struct {
	Command Command
	Code    int    // HTTP status code, 0 for network failures
	Status  string // HTTP status line, empty for network failures
	Err     error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bookdb %s: execute request: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("bookdb %s: unexpected http status %s", e.Command, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError reports a payload that is not valid JSON or
// lacks keys the caller depends on.
type MalformedResponseError struct {
	Command Command
	Missing []string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("bookdb %s: malformed response: %v", e.Command, e.Err)
	case len(e.Missing) > 0:
		return fmt.Sprintf("bookdb %s: malformed response: missing %s", e.Command, strings.Join(e.Missing, ", "))
	default:
		return fmt.Sprintf("bookdb %s: malformed response", e.Command)
	}
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
