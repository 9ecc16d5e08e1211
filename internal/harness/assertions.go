package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/eqhdl/eqhdl/internal/logicsyn"
	"github.com/eqhdl/eqhdl/internal/store"
)

// AssertionContext carries what state assertions need beyond the result.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// AssertionError is returned when an assertion fails. It carries the full
// trace for debugging.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			switch event.Type {
			case EventRewrite:
				fmt.Fprintf(&buf, "  [%d] rewrite %s: %s => %s\n", i+1, event.Unit, event.Before, event.After)
			case EventDerive:
				fmt.Fprintf(&buf, "  [%d] round %d %s: %s\n", i+1, event.Round, event.Rule, event.Gate)
			}
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages. It does not stop at the first failure.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertUnitTerm:
		return assertUnitTerm(result, a)
	case AssertUnitImproved:
		return assertUnitImproved(result, a)
	case AssertRelationCount:
		return assertRelationCount(result, a)
	case AssertGateExists:
		return assertGateExists(actx, result, a)
	case AssertRounds:
		return assertRounds(result, a)
	case AssertProposalsVerify:
		return assertProposalsVerify(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func unitOutcome(result *Result, a Assertion) (UnitOutcome, error) {
	out, ok := result.Units[a.Unit]
	if !ok {
		return out, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("unit %s rewritten", a.Unit),
			Actual:   "unit not in the rewrite step",
			Trace:    result.Trace,
		}
	}
	if out.Err != "" {
		return out, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("unit %s rewritten", a.Unit),
			Actual:   "error: " + out.Err,
			Trace:    result.Trace,
		}
	}
	return out, nil
}

// assertUnitTerm compares the extracted term textually.
func assertUnitTerm(result *Result, a Assertion) error {
	out, err := unitOutcome(result, a)
	if err != nil {
		return err
	}
	if out.After != a.Term {
		return &AssertionError{
			Type:     AssertUnitTerm,
			Expected: fmt.Sprintf("%s extracts to %s", a.Unit, a.Term),
			Actual:   out.After,
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertUnitImproved(result *Result, a Assertion) error {
	out, err := unitOutcome(result, a)
	if err != nil {
		return err
	}
	if out.Improved != *a.Improved {
		return &AssertionError{
			Type:     AssertUnitImproved,
			Expected: fmt.Sprintf("improved=%t for %s", *a.Improved, a.Unit),
			Actual:   fmt.Sprintf("improved=%t (%s => %s)", out.Improved, out.Before, out.After),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertRelationCount(result *Result, a Assertion) error {
	n := result.Counts[a.Relation]
	if n != a.Count {
		return &AssertionError{
			Type:     AssertRelationCount,
			Expected: fmt.Sprintf("%d tuples in %s", a.Count, a.Relation),
			Actual:   fmt.Sprintf("%d tuples", n),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertGateExists reads the relation back from the store, so loaded input
// tuples count as well as derived ones.
func assertGateExists(actx *AssertionContext, result *Result, a Assertion) error {
	if actx == nil || actx.Store == nil {
		return fmt.Errorf("gate_exists assertion requires a store")
	}
	rel := store.Relation(a.Relation)
	want := store.Gate{Rel: rel, ID: a.Gate.ID, A: a.Gate.A, B: a.Gate.B, Cost: a.Gate.Cost}

	gates, err := actx.Store.Gates(actx.Ctx, rel)
	if err != nil {
		return &AssertionError{
			Type:     AssertGateExists,
			Expected: fmt.Sprintf("read %s", a.Relation),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	if !slices.Contains(gates, want) {
		return &AssertionError{
			Type:     AssertGateExists,
			Expected: want.String(),
			Actual:   "not found in " + a.Relation,
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertRounds(result *Result, a Assertion) error {
	if result.Rounds != a.Count {
		return &AssertionError{
			Type:     AssertRounds,
			Expected: fmt.Sprintf("%d rounds", a.Count),
			Actual:   fmt.Sprintf("%d rounds", result.Rounds),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertProposalsVerify checks the proposal count, then proves every
// proposal with the SAT miter.
func assertProposalsVerify(result *Result, a Assertion) error {
	if len(result.Proposals) != a.Count {
		return &AssertionError{
			Type:     AssertProposalsVerify,
			Expected: fmt.Sprintf("%d proposals", a.Count),
			Actual:   fmt.Sprintf("%d proposals", len(result.Proposals)),
			Trace:    result.Trace,
		}
	}
	for _, p := range result.Proposals {
		ok, err := logicsyn.Verify(p)
		if err != nil {
			return &AssertionError{
				Type:     AssertProposalsVerify,
				Expected: "verifiable proposal " + p.String(),
				Actual:   err.Error(),
			}
		}
		if !ok {
			return &AssertionError{
				Type:     AssertProposalsVerify,
				Expected: "equivalent proposal " + p.String(),
				Actual:   "body and head differ",
			}
		}
	}
	return nil
}
