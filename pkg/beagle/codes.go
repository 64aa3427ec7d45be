// Package beagle defines the public data surface of the likelihood engine:
// capability flags, return codes, instance configuration and the wire-level
// operation encoding. The values are bit-for-bit compatible with the
// libhmsbeagle C API so that clients can be ported without translation
// tables.
package beagle

import (
	"errors"
	"fmt"
)

// ReturnCode enumerates the classic API result codes. Success is zero and
// every failure is negative.
type ReturnCode int

const (
	NoError                    ReturnCode = 0
	GeneralError               ReturnCode = -1
	OutOfMemoryError           ReturnCode = -2
	UnidentifiedExceptionError ReturnCode = -3
	UninitializedInstanceError ReturnCode = -4
	OutOfRangeError            ReturnCode = -5
)

var (
	ErrGeneral               = errors.New("beagle: general error")
	ErrOutOfMemory           = errors.New("beagle: out of memory")
	ErrUnidentifiedException = errors.New("beagle: unidentified exception")
	ErrUninitializedInstance = errors.New("beagle: uninitialized instance")
	ErrOutOfRange            = errors.New("beagle: index out of range")
)

type codedError struct {
	msg      string
	sentinel error
}

func (e codedError) Error() string { return e.msg }

func (e codedError) Unwrap() error { return e.sentinel }

// Generalf returns a GeneralError-coded error with a formatted message.
func Generalf(format string, args ...any) error {
	return codedError{msg: fmt.Sprintf(format, args...), sentinel: ErrGeneral}
}

// OutOfRangef returns an OutOfRangeError-coded error with a formatted message.
func OutOfRangef(format string, args ...any) error {
	return codedError{msg: fmt.Sprintf(format, args...), sentinel: ErrOutOfRange}
}

// Uninitializedf returns an UninitializedInstanceError-coded error.
func Uninitializedf(format string, args ...any) error {
	return codedError{msg: fmt.Sprintf(format, args...), sentinel: ErrUninitializedInstance}
}

// Internalf returns an UnidentifiedExceptionError-coded error. It is reserved
// for faults the engine did not expect, never for input validation.
func Internalf(format string, args ...any) error {
	return codedError{msg: fmt.Sprintf(format, args...), sentinel: ErrUnidentifiedException}
}

// CodeOf maps an error to its ReturnCode. A nil error is NoError; an error
// that carries no recognised sentinel maps to UnidentifiedExceptionError.
func CodeOf(err error) ReturnCode {
	switch {
	case err == nil:
		return NoError
	case errors.Is(err, ErrGeneral):
		return GeneralError
	case errors.Is(err, ErrOutOfMemory):
		return OutOfMemoryError
	case errors.Is(err, ErrUninitializedInstance):
		return UninitializedInstanceError
	case errors.Is(err, ErrOutOfRange):
		return OutOfRangeError
	default:
		return UnidentifiedExceptionError
	}
}
