package schema

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes registry and schema errors.
type ErrorCode string

const (
	// ErrSchemaCollision indicates two declarations share a name.
	ErrSchemaCollision ErrorCode = "SCHEMA_COLLISION"

	// ErrUnknownSymbol indicates a symbol with no registered opcode.
	ErrUnknownSymbol ErrorCode = "UNKNOWN_SYMBOL"

	// ErrUnknownOperation indicates an opcode with no registered symbol.
	ErrUnknownOperation ErrorCode = "UNKNOWN_OPERATION"

	// ErrUnsupportedShape indicates an opcode shape the schema cannot express.
	ErrUnsupportedShape ErrorCode = "UNSUPPORTED_SHAPE"
)

// Error is a registry or schema failure.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds an Error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsSchemaCollision reports whether err is a SchemaCollision.
func IsSchemaCollision(err error) bool { return hasCode(err, ErrSchemaCollision) }

// IsUnknownSymbol reports whether err is an UnknownSymbol.
func IsUnknownSymbol(err error) bool { return hasCode(err, ErrUnknownSymbol) }

// IsUnknownOperation reports whether err is an UnknownOperation.
func IsUnknownOperation(err error) bool { return hasCode(err, ErrUnknownOperation) }

// IsUnsupportedShape reports whether err is an UnsupportedShape.
func IsUnsupportedShape(err error) bool { return hasCode(err, ErrUnsupportedShape) }
