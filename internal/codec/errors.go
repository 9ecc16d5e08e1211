package codec

import (
	"errors"
	"fmt"
)

// Error is an encoding or decoding failure for one unit.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Unit names the unit being encoded or decoded.
	Unit string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes codec errors.
type ErrorCode string

const (
	// ErrCodeEmptyUnit indicates a unit without instructions.
	ErrCodeEmptyUnit ErrorCode = "EMPTY_UNIT"

	// ErrCodeUnsupportedShape indicates an instruction layout the encoder
	// does not enumerate.
	ErrCodeUnsupportedShape ErrorCode = "UNSUPPORTED_SHAPE"

	// ErrCodeUnknownOperation indicates an opcode missing from the registry.
	ErrCodeUnknownOperation ErrorCode = "UNKNOWN_OPERATION"

	// ErrCodeUnknownSymbol indicates a constructor the decoder cannot name.
	ErrCodeUnknownSymbol ErrorCode = "UNKNOWN_SYMBOL"

	// ErrCodeStackUnderflow indicates a marker with fewer operands than its arity.
	ErrCodeStackUnderflow ErrorCode = "STACK_UNDERFLOW"

	// ErrCodeStackMismatch indicates an operand of the wrong kind, or
	// operands left over at the end of replay.
	ErrCodeStackMismatch ErrorCode = "STACK_MISMATCH"

	// ErrCodeUnsupportedOpcode indicates an opcode replay has no case for.
	ErrCodeUnsupportedOpcode ErrorCode = "UNSUPPORTED_OPCODE"

	// ErrCodeUnknownValue indicates a value reference outside the signature.
	ErrCodeUnknownValue ErrorCode = "UNKNOWN_VALUE"

	// ErrCodeMalformedTerm indicates a term that is not an encoded unit.
	ErrCodeMalformedTerm ErrorCode = "MALFORMED_TERM"

	// ErrCodeBuild indicates an instruction the IR builder rejected.
	ErrCodeBuild ErrorCode = "BUILD"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Unit != "" {
		msg = fmt.Sprintf("%s: %s (unit=%s)", e.Code, e.Message, e.Unit)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

func newError(code ErrorCode, unit string, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Unit: unit, Message: fmt.Sprintf(format, args...), Err: cause}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsEmptyUnit reports whether err is an EMPTY_UNIT error.
func IsEmptyUnit(err error) bool { return hasCode(err, ErrCodeEmptyUnit) }

// IsUnsupportedShape reports whether err is an UNSUPPORTED_SHAPE error.
func IsUnsupportedShape(err error) bool { return hasCode(err, ErrCodeUnsupportedShape) }

// IsUnknownOperation reports whether err is an UNKNOWN_OPERATION error.
func IsUnknownOperation(err error) bool { return hasCode(err, ErrCodeUnknownOperation) }

// IsUnknownSymbol reports whether err is an UNKNOWN_SYMBOL error.
func IsUnknownSymbol(err error) bool { return hasCode(err, ErrCodeUnknownSymbol) }

// IsStackUnderflow reports whether err is a STACK_UNDERFLOW error.
func IsStackUnderflow(err error) bool { return hasCode(err, ErrCodeStackUnderflow) }

// IsStackMismatch reports whether err is a STACK_MISMATCH error.
func IsStackMismatch(err error) bool { return hasCode(err, ErrCodeStackMismatch) }

// IsUnsupportedOpcode reports whether err is an UNSUPPORTED_OPCODE error.
func IsUnsupportedOpcode(err error) bool { return hasCode(err, ErrCodeUnsupportedOpcode) }

// IsUnknownValue reports whether err is an UNKNOWN_VALUE error.
func IsUnknownValue(err error) bool { return hasCode(err, ErrCodeUnknownValue) }

// IsMalformedTerm reports whether err is a MALFORMED_TERM error.
func IsMalformedTerm(err error) bool { return hasCode(err, ErrCodeMalformedTerm) }
