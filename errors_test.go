package fncengine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseError(t *testing.T) {
	tests := []struct {
		name   string
		err    *ParseError
		expect string
	}{
		{"top level", &ParseError{Index: -1, Reason: "got bool", Err: ErrMalformedInput}, "parse function calls: malformed input: got bool"},
		{"element", &ParseError{Index: 2, Reason: "missing name", Err: ErrValidation}, "parse function call #2: validation failed: missing name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.err.Error())
			assert.ErrorIs(t, tt.err, tt.err.Err)
		})
	}
}

func TestArgumentError(t *testing.T) {
	err := &ArgumentError{Reason: "unexpected argument c", Err: ErrInvalidArguments}
	assert.Equal(t, "invalid function arguments: unexpected argument c", err.Error())
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestSystemError(t *testing.T) {
	inner := errors.New("db connection refused")
	err := &SystemError{Err: inner}
	assert.Equal(t, "internal system error during function call: db connection refused", err.Error())
	assert.Same(t, inner, err.Unwrap())
}

func TestErrorsIs_As(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		is       bool
		asParse  bool
		asArg    bool
		asSystem bool
	}{
		{"ParseError direct", invalid(0, "x"), ErrValidation, true, true, false, false},
		{"ParseError decode", undecodable(1, errors.New("eof")), ErrDecode, true, true, false, false},
		{"ArgumentError direct", &ArgumentError{Reason: "x", Err: ErrInvalidArguments}, ErrInvalidArguments, true, false, true, false},
		{"wrapped ParseError", wrapErr{err: malformed("y")}, ErrMalformedInput, true, true, false, false},
		{"wrapped SystemError", wrapErr{err: &SystemError{Err: &panicError{p: "boom"}}}, ErrValidation, false, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.is, errors.Is(tt.err, tt.target), "errors.Is")
			assert.Equal(t, tt.asParse, IsParseError(tt.err), "IsParseError")
			assert.Equal(t, tt.asArg, IsArgumentError(tt.err), "IsArgumentError")
			assert.Equal(t, tt.asSystem, IsSystemError(tt.err), "IsSystemError")
		})
	}
}

func TestIsParseError(t *testing.T) {
	require.True(t, IsParseError(malformed("x")))
	require.False(t, IsParseError(ErrUnknownFunction))
	require.False(t, IsParseError(&SystemError{Err: errors.New("x")}))
}

func TestPanicError(t *testing.T) {
	assert.Equal(t, "panic: oops", (&panicError{p: "oops"}).Error())
}

type wrapErr struct {
	err error
}

func (e wrapErr) Error() string {
	if e.err == nil {
		return ""
	}
	return "wrap: " + e.err.Error()
}
func (e wrapErr) Unwrap() error { return e.err }
