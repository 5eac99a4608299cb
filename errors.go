package runner

import (
	"errors"
	"fmt"
)

// ConfigError represents a fatal configuration problem (missing test file,
// empty file list, unknown browser). It always maps to exit code 1 and no
// browser session is started.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(err error) *ConfigError {
	return &ConfigError{Err: err}
}

// IsConfigError checks if the error is or wraps a ConfigError
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return err != nil && errors.As(err, &cfgErr)
}

// SessionError carries the non-zero code delivered by the browser session's
// completion callback: test failures or session-level faults (browser crash,
// capture timeout, port conflict).
type SessionError struct {
	Code int
	Err  error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session failed with code %d: %v", e.Code, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new SessionError
func NewSessionError(code int, err error) *SessionError {
	return &SessionError{Code: code, Err: err}
}

// AsSessionError extracts a SessionError if the error is or wraps one
func AsSessionError(err error) (*SessionError, bool) {
	var sessErr *SessionError
	if err != nil && errors.As(err, &sessErr) {
		return sessErr, true
	}
	return nil, false
}
