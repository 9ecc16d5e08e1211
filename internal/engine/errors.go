package engine

import (
	"errors"
	"fmt"
)

// Error is a failure detected by a session.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// SessionID identifies the affected session.
	SessionID string

	// Rule names the rewrite involved, if any.
	Rule string

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes session errors.
type ErrorCode string

const (
	// ErrCodeSchemaCollision indicates a sort or constructor declared twice.
	ErrCodeSchemaCollision ErrorCode = "SCHEMA_COLLISION"

	// ErrCodeInvalidSchema indicates a declaration referring to an unknown sort.
	ErrCodeInvalidSchema ErrorCode = "INVALID_SCHEMA"

	// ErrCodeRuleParse indicates a rule that does not parse or type-check.
	ErrCodeRuleParse ErrorCode = "RULE_PARSE"

	// ErrCodeFactLoad indicates an ill-typed fact or a conflicting rebinding.
	ErrCodeFactLoad ErrorCode = "FACT_LOAD"

	// ErrCodeScheduleRun indicates a schedule that cannot run.
	ErrCodeScheduleRun ErrorCode = "SCHEDULE_RUN"

	// ErrCodeBudgetExceeded indicates an exhausted iteration, node or time budget.
	ErrCodeBudgetExceeded ErrorCode = "BUDGET_EXCEEDED"

	// ErrCodeInvalidState indicates an operation not allowed in the current state.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"

	// ErrCodeExtraction indicates a binding that cannot be extracted.
	ErrCodeExtraction ErrorCode = "EXTRACTION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Rule != "" {
		msg += fmt.Sprintf(" (rule=%s)", e.Rule)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

func newError(code ErrorCode, session string, cause error, format string, args ...any) *Error {
	return &Error{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		SessionID: session,
		Err:       cause,
	}
}

// hasCode walks the whole chain: an INVALID_STATE error may carry the
// schema error that poisoned the session.
func hasCode(err error, code ErrorCode) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

// IsSchemaCollision reports whether err is a SCHEMA_COLLISION error.
func IsSchemaCollision(err error) bool { return hasCode(err, ErrCodeSchemaCollision) }

// IsInvalidSchema reports whether err is an INVALID_SCHEMA error.
func IsInvalidSchema(err error) bool { return hasCode(err, ErrCodeInvalidSchema) }

// IsRuleParseError reports whether err is a RULE_PARSE error.
func IsRuleParseError(err error) bool { return hasCode(err, ErrCodeRuleParse) }

// IsFactLoadError reports whether err is a FACT_LOAD error.
func IsFactLoadError(err error) bool { return hasCode(err, ErrCodeFactLoad) }

// IsScheduleRunError reports whether err is a SCHEDULE_RUN error.
func IsScheduleRunError(err error) bool { return hasCode(err, ErrCodeScheduleRun) }

// IsBudgetExceeded reports whether err is a BUDGET_EXCEEDED error.
// Matches both Error with ErrCodeBudgetExceeded and IterationsExceededError.
func IsBudgetExceeded(err error) bool {
	if hasCode(err, ErrCodeBudgetExceeded) {
		return true
	}
	return IsIterationsExceededError(err)
}

// IsInvalidState reports whether err is an INVALID_STATE error.
func IsInvalidState(err error) bool { return hasCode(err, ErrCodeInvalidState) }

// IsExtractionError reports whether err is an EXTRACTION error.
func IsExtractionError(err error) bool { return hasCode(err, ErrCodeExtraction) }
