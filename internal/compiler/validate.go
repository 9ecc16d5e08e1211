package compiler

import (
	"errors"
	"fmt"

	"github.com/eqhdl/eqhdl/internal/ir"
	"github.com/eqhdl/eqhdl/internal/store"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedType = "E100" // unsupported value for validation

	// Unit errors (E101-E109)
	ErrUnitEmpty  = "E101" // unit has no instructions
	ErrUnitVerify = "E102" // ir.Verify rejected the unit

	// Network errors (E110-E119)
	ErrNetworkEmpty      = "E110" // network has no gates
	ErrGateCost          = "E111" // cost must be positive
	ErrGateRedefined     = "E112" // id defined by two gates
	ErrUnknownRule       = "E113" // rule name not built in
	ErrNegativeLimit     = "E114" // negative round, iteration or node limit
	ErrCombinationalLoop = "E115" // gate reads its own output

	// Pipeline errors (E120-E129)
	ErrRulesParse    = "E120" // rule source does not parse
	ErrScheduleParse = "E121" // schedule does not parse
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled unit, network or pipeline.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch x := v.(type) {
	case *ir.Unit:
		return validateUnit(x)
	case *NetworkSpec:
		return validateNetwork(x)
	case NetworkSpec:
		return validateNetwork(&x)
	case *PipelineSpec:
		return validatePipeline(x)
	case PipelineSpec:
		return validatePipeline(&x)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateUnit(u *ir.Unit) []ValidationError {
	if len(u.Insts) == 0 {
		return []ValidationError{{
			Field:   u.Name,
			Message: "unit has no instructions",
			Code:    ErrUnitEmpty,
		}}
	}

	err := ir.Verify(u)
	if err == nil {
		return nil
	}
	var ve *ir.VerifyError
	if !errors.As(err, &ve) {
		return []ValidationError{{Field: u.Name, Message: err.Error(), Code: ErrUnitVerify}}
	}
	errs := make([]ValidationError, len(ve.Problems))
	for i, p := range ve.Problems {
		errs[i] = ValidationError{Field: u.Name, Message: p, Code: ErrUnitVerify}
	}
	return errs
}

func validateNetwork(n *NetworkSpec) []ValidationError {
	var errs []ValidationError

	if len(n.Gates) == 0 {
		errs = append(errs, ValidationError{
			Field:   "gates",
			Message: "network has no gates",
			Code:    ErrNetworkEmpty,
		})
	}

	defined := map[int64]store.Gate{}
	for i, g := range n.Gates {
		field := fmt.Sprintf("gates[%d]", i)
		if g.Cost <= 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".cost",
				Message: fmt.Sprintf("cost of %s must be positive", g),
				Code:    ErrGateCost,
			})
		}
		if prev, dup := defined[g.ID]; dup {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("%s redefines %d, already defined by %s", g, g.ID, prev),
				Code:    ErrGateRedefined,
			})
			continue
		}
		defined[g.ID] = g
	}

	for _, w := range AnalyzeCycles(n.Gates) {
		errs = append(errs, ValidationError{
			Field:   "gates",
			Message: w.Message,
			Code:    ErrCombinationalLoop,
		})
	}

	if _, err := n.RuleSet(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "rules",
			Message: err.Error(),
			Code:    ErrUnknownRule,
		})
	}
	if n.MaxRounds < 0 {
		errs = append(errs, ValidationError{
			Field:   "max_rounds",
			Message: fmt.Sprintf("max_rounds must not be negative, got %d", n.MaxRounds),
			Code:    ErrNegativeLimit,
		})
	}
	return errs
}

func validatePipeline(p *PipelineSpec) []ValidationError {
	var errs []ValidationError

	if _, err := p.Program(); err != nil {
		code := ErrRulesParse
		field := "rules"
		if p.Schedule != "" && errors.Is(err, errScheduleParse) {
			code, field = ErrScheduleParse, "schedule"
		}
		errs = append(errs, ValidationError{Field: field, Message: err.Error(), Code: code})
	}

	for _, f := range []struct {
		name string
		n    int
	}{
		{"max_iterations", p.MaxIterations},
		{"node_limit", p.NodeLimit},
		{"workers", p.Workers},
	} {
		if f.n < 0 {
			errs = append(errs, ValidationError{
				Field:   f.name,
				Message: fmt.Sprintf("%s must not be negative, got %d", f.name, f.n),
				Code:    ErrNegativeLimit,
			})
		}
	}
	if p.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "timeout",
			Message: fmt.Sprintf("timeout must not be negative, got %s", p.Timeout),
			Code:    ErrNegativeLimit,
		})
	}
	return errs
}
