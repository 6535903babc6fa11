package demangle

import (
	"errors"
	"fmt"
)

// Common errors returned by Decode and Demangle.
var (
	ErrEmptyInput  = errors.New("demangle: empty input")
	ErrNotMangled  = errors.New("demangle: not an Itanium C++ mangled name")
	ErrMalformed   = errors.New("demangle: malformed mangled name")
	ErrUnsupported = errors.New("demangle: unsupported construct")
	ErrBackref     = errors.New("demangle: unresolvable back-reference")
	ErrInvariant   = errors.New("demangle: inconsistent syntax tree")
)

// DecodeError describes where and why decoding failed.
type DecodeError struct {
	Kind   error  // one of the Err* sentinels
	Offset int    // byte offset into the mangled name, -1 if not applicable
	Msg    string // description
	Input  string // the input span being decoded at the time of failure
}

func (e *DecodeError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
	}
	if e.Input != "" {
		return fmt.Sprintf("%v at offset %d: %s (near %q)", e.Kind, e.Offset, e.Msg, e.Input)
	}
	return fmt.Sprintf("%v at offset %d: %s", e.Kind, e.Offset, e.Msg)
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}
