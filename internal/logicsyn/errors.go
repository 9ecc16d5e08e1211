package logicsyn

import (
	"errors"
	"fmt"
)

// Error is a failure of a logic-synthesis run.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Rule names the rule involved, if any.
	Rule string

	// Round is the round in which the failure happened, 0 outside rounds.
	Round int

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes logic-synthesis errors.
type ErrorCode string

const (
	// ErrCodeInvalidRule indicates a rule that is not range restricted or
	// whose body does not compile.
	ErrCodeInvalidRule ErrorCode = "INVALID_RULE"

	// ErrCodeMonotonicity indicates a relation that did not grow by exactly
	// what a round inserted. It is an internal invariant failure.
	ErrCodeMonotonicity ErrorCode = "MONOTONICITY_VIOLATION"

	// ErrCodeBudgetExceeded indicates an exhausted round quota or context.
	ErrCodeBudgetExceeded ErrorCode = "BUDGET_EXCEEDED"

	// ErrCodeStore indicates a failing store operation.
	ErrCodeStore ErrorCode = "STORE"

	// ErrCodeVerify indicates a proposal that cannot be checked, such as one
	// whose gates form a cycle.
	ErrCodeVerify ErrorCode = "VERIFY"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Rule != "" {
		msg += fmt.Sprintf(" (rule=%s)", e.Rule)
	}
	if e.Round > 0 {
		msg += fmt.Sprintf(" (round=%d)", e.Round)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

func newError(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsInvalidRule reports whether err is an INVALID_RULE error.
func IsInvalidRule(err error) bool { return hasCode(err, ErrCodeInvalidRule) }

// IsMonotonicityViolation reports whether err is a MONOTONICITY_VIOLATION
// error.
func IsMonotonicityViolation(err error) bool { return hasCode(err, ErrCodeMonotonicity) }

// IsBudgetExceeded reports whether err is a BUDGET_EXCEEDED error.
func IsBudgetExceeded(err error) bool { return hasCode(err, ErrCodeBudgetExceeded) }

// IsStoreError reports whether err is a STORE error.
func IsStoreError(err error) bool { return hasCode(err, ErrCodeStore) }

// IsVerifyError reports whether err is a VERIFY error.
func IsVerifyError(err error) bool { return hasCode(err, ErrCodeVerify) }
