package fncengine

import (
	"errors"
	"fmt"
)

// Sentinel errors for fncengine. Use errors.Is to check.
var (
	ErrMalformedInput      = errors.New("malformed input")
	ErrDecode              = errors.New("decode failed")
	ErrValidation          = errors.New("validation failed")
	ErrUnknownFunction     = errors.New("unknown function")
	ErrMissingReturns      = errors.New("missing returns")
	ErrArityMismatch       = errors.New("result arity mismatch")
	ErrOutputNotFound      = errors.New("output not found")
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrSourceNotFound      = errors.New("source not found")
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrInvalidArguments    = errors.New("invalid arguments")
)

// ParseError is returned by Parse, ParseJSON and the text path of ParseAndInvoke.
// Index is the position of the offending element, or -1 when the top-level value
// itself is rejected. Err is one of ErrMalformedInput, ErrDecode or ErrValidation.
type ParseError struct {
	Index  int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("parse function calls: %s: %s", e.Err, e.Reason)
	}
	return fmt.Sprintf("parse function call #%d: %s: %s", e.Index, e.Err, e.Reason)
}

// Unwrap supports errors.Is on the sentinel (e.g. errors.Is(err, ErrValidation)).
func (e *ParseError) Unwrap() error { return e.Err }

// ArgumentError is returned by functions built with NewFunc or NewTool when the
// argument map does not fit the typed parameters (unknown or missing names, wrong
// JSON types, failed Validatable check). It is a callable error: the dispatcher
// returns it unchanged.
type ArgumentError struct {
	Reason string
	Err    error // wrapped sentinel for errors.Is/errors.As
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid function arguments: %s", e.Reason)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// SystemError represents a recovered panic inside a callable.
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string {
	return "internal system error during function call: " + e.Err.Error()
}

func (e *SystemError) Unwrap() error { return e.Err }

// IsParseError returns true if err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsArgumentError returns true if err is or wraps an ArgumentError.
func IsArgumentError(err error) bool {
	var ae *ArgumentError
	return errors.As(err, &ae)
}

// IsSystemError returns true if err is or wraps a SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// wrapJSONParseError returns an ArgumentError for JSON unmarshal failures in typed adapters.
func wrapJSONParseError(err error) error {
	return &ArgumentError{Reason: "json parse error: " + err.Error(), Err: ErrInvalidArguments}
}

func malformed(format string, args ...any) error {
	return &ParseError{Index: -1, Reason: fmt.Sprintf(format, args...), Err: ErrMalformedInput}
}

func invalid(index int, format string, args ...any) error {
	return &ParseError{Index: index, Reason: fmt.Sprintf(format, args...), Err: ErrValidation}
}

func undecodable(index int, err error) error {
	return &ParseError{Index: index, Reason: err.Error(), Err: ErrDecode}
}

// panicError wraps a recovered panic value for SystemError; used by the dispatcher and WithRecovery middleware.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}
