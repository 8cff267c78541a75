// Package errors provides structured error types for refbump.
//
// Every failure the update engine reports to a caller carries a [Code], so
// a batch can tell a broken manifest from a bad migration file or a
// missing repository file without matching on message text.
//
// # Error Codes
//
//   - INVALID_*: the input cannot be processed (manifest, condition, range)
//   - *NOT_FOUND: a referenced file or element does not exist
//   - UNSUPPORTED: valid input the engine does not handle
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidRange, "invalid range %q", expr)
//	if errors.Is(err, errors.ErrCodeInvalidRange) {
//	    // reject the whole migration batch
//	}
//
//	err := errors.Wrap(errors.ErrCodeInvalidManifest, xmlErr, "parse %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// Input that cannot be processed.
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidPackage   Code = "INVALID_PACKAGE"
	ErrCodeInvalidManifest  Code = "INVALID_MANIFEST"
	ErrCodeInvalidCondition Code = "INVALID_CONDITION"
	ErrCodeInvalidVersion   Code = "INVALID_VERSION"
	ErrCodeInvalidRange     Code = "INVALID_RANGE"
	ErrCodeInvalidMigration Code = "INVALID_MIGRATION"
	ErrCodeInvalidPath      Code = "INVALID_PATH"
	ErrCodeInvalidConfig    Code = "INVALID_CONFIG"

	// Missing resources.
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the first *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode returns the code of the first *Error in err's chain, or "" when
// there is none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage renders err for a terminal: codes are dropped from every
// *Error in the chain, other wrapping text is kept.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + UserMessage(e.Cause)
	}
	// Keep context added by fmt.Errorf wrappers above the *Error.
	if outer, inner := err.Error(), e.Error(); outer != inner && len(outer) > len(inner) && outer[len(outer)-len(inner):] == inner {
		return outer[:len(outer)-len(inner)] + msg
	}
	return msg
}
