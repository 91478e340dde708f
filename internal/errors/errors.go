package errors

import (
	"errors"
	"fmt"
)

// ErrTooLarge is returned (wrapped in a ScanError) when a source file
// exceeds the configured size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// ScanError represents a failure to read or scan a source file
type ScanError struct {
	File string
	Op   string // "open", "read", "scan"
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.File, e.Err)
}

// Unwrap returns the underlying cause
func (e *ScanError) Unwrap() error {
	return e.Err
}

// NewScanError creates a new ScanError
func NewScanError(file, op string, err error) *ScanError {
	return &ScanError{
		File: file,
		Op:   op,
		Err:  err,
	}
}

// ConnectionError represents PostgreSQL connection failure
type ConnectionError struct {
	Host       string
	Port       int
	Message    string
	Suggestion string
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("failed to connect to %s:%d: %s", e.Host, e.Port, e.Message)
	if e.Suggestion != "" {
		msg += "\n  Suggestion: " + e.Suggestion
	}
	return msg
}

// NewConnectionError creates a new ConnectionError
func NewConnectionError(host string, port int, message, suggestion string) *ConnectionError {
	return &ConnectionError{
		Host:       host,
		Port:       port,
		Message:    message,
		Suggestion: suggestion,
	}
}

// StoreError represents a failure of an index store backend
type StoreError struct {
	Backend string // "json", "sqlite", "postgres"
	Op      string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns the underlying cause
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError
func NewStoreError(backend, op string, err error) *StoreError {
	return &StoreError{
		Backend: backend,
		Op:      op,
		Err:     err,
	}
}

// IsScanError reports whether err is or wraps a ScanError
func IsScanError(err error) bool {
	var se *ScanError
	return errors.As(err, &se)
}
