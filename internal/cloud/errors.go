package cloud

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a provider failure for retry and status decisions.
type ErrorKind string

const (
	// KindConflict means the resource already exists. Callers treat it as
	// success, never as a failure.
	KindConflict ErrorKind = "conflict"
	// KindNotFound means the addressed resource does not exist.
	KindNotFound ErrorKind = "not-found"
	// KindTransient covers throttling, timeouts and 5xx-class failures that
	// are worth retrying.
	KindTransient ErrorKind = "transient"
	// KindPermanent covers failures a retry cannot fix (bad request, denied
	// permission, quota configuration).
	KindPermanent ErrorKind = "permanent"
	// KindUnknown is an unclassified failure; it is not retried.
	KindUnknown ErrorKind = "unknown"
)

// Error wraps a provider failure with its operation and classification.
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified provider error.
func NewError(op string, kind ErrorKind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func kindOf(err error) (ErrorKind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return KindUnknown, false
}

// IsConflict reports whether err is a classified already-exists conflict.
func IsConflict(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindConflict
}

// IsNotFound reports whether err is a classified not-found.
func IsNotFound(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindNotFound
}

// IsTransient reports whether err is a classified transient failure.
func IsTransient(err error) bool {
	k, ok := kindOf(err)
	return ok && k == KindTransient
}

// ConfigError marks a configuration problem. A run that hits one is rejected
// before any control-plane call and maps to its own process exit code.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ConfigErrorf builds a ConfigError from a format string.
func ConfigErrorf(format string, args ...any) error {
	return &ConfigError{Err: fmt.Errorf(format, args...)}
}

// IsConfigError reports whether err is configuration-class.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
