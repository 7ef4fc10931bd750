package cdcs

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat indicates a malformed version string, charset or identifying value.
	ErrFormat = errors.New("malformed value")

	// ErrRange indicates a value outside its permitted bounds, such as a
	// generation below 2 or a template version index past the last version.
	ErrRange = errors.New("value out of range")

	// ErrConflict indicates mutually exclusive parameters were supplied
	// together, or a create would duplicate an existing entity.
	ErrConflict = errors.New("conflicting parameters")

	// ErrNotFound indicates an exactly-one lookup matched nothing.
	ErrNotFound = errors.New("no matching entity found")

	// ErrAmbiguousMatch indicates an exactly-one lookup matched several entities.
	ErrAmbiguousMatch = errors.New("multiple matching entities found")

	// ErrProtocolInvariant indicates the server broke its own paging contract.
	ErrProtocolInvariant = errors.New("server response violated protocol invariant")

	// ErrTransport indicates a connection failure or an unexpected HTTP status.
	ErrTransport = errors.New("transport failure")

	// ErrType indicates a payload of an unsupported Go type.
	ErrType = errors.New("unsupported type")
)

// Error represents a client operation error.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying sentinel or cause
	Msg string // Human-readable detail
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, err error, format string, args ...any) *Error {
	return &Error{Op: op, Err: err, Msg: fmt.Sprintf(format, args...)}
}

// StatusError is returned when the server answers with a status the
// operation did not expect.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: API returned status %d: %s", e.Method, e.Path, e.StatusCode, truncate(e.Body, 512))
}

// Is reports StatusError as a transport failure.
func (e *StatusError) Is(target error) bool {
	return target == ErrTransport
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
