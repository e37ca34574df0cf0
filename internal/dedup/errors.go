package dedup

import (
	"errors"
	"fmt"
)

// Error is the engine's error type.
//
// Codes map onto the error taxonomy:
//   - STORE_UNAVAILABLE: cannot reach or read the store; fatal for the run
//   - WRITE_FAILED: a delete or upsert was rejected; recorded per group/record
//   - INVALID_CONFIG: run configuration rejected before any store access
//   - MISSING_FIELD: a record lacks a field the operation cannot do without
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the store operation or step that failed (e.g. "delete_many").
	Op string

	// Key identifies the affected group key or record ID, if any.
	Key string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeWriteFailed      ErrorCode = "WRITE_FAILED"
	ErrCodeInvalidConfig    ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingField     ErrorCode = "MISSING_FIELD"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" (%s)", e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsUnavailable reports whether err is a connectivity failure.
func IsUnavailable(err error) bool { return hasCode(err, ErrCodeStoreUnavailable) }

// IsWriteFailure reports whether err is a rejected write.
func IsWriteFailure(err error) bool { return hasCode(err, ErrCodeWriteFailed) }

// IsInvalidConfig reports whether err is a rejected run configuration.
func IsInvalidConfig(err error) bool { return hasCode(err, ErrCodeInvalidConfig) }

func unavailable(op string, err error) *Error {
	return &Error{Code: ErrCodeStoreUnavailable, Op: op, Err: err}
}

func writeFailed(op, key string, err error) *Error {
	return &Error{Code: ErrCodeWriteFailed, Op: op, Key: key, Err: err}
}

func invalidConfig(format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidConfig, Err: fmt.Errorf(format, args...)}
}
