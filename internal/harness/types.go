package harness

import "github.com/eqhdl/eqhdl/internal/logicsyn"

// Trace event types.
const (
	EventRewrite = "rewrite"
	EventDerive  = "derive"
)

// TraceEvent is either one rewritten unit or one derived tuple.
type TraceEvent struct {
	Type string `json:"type"`

	// Rewrite events.
	Unit   string `json:"unit,omitempty"`
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
	Error  string `json:"error,omitempty"`

	// Derive events.
	Seq   int64  `json:"seq,omitempty"`
	Round int    `json:"round,omitempty"`
	Rule  string `json:"rule,omitempty"`
	Gate  string `json:"gate,omitempty"`
}

// UnitOutcome is what the rewrite step produced for one unit.
type UnitOutcome struct {
	Before   string `json:"before"`
	After    string `json:"after,omitempty"`
	Improved bool   `json:"improved"`
	Err      string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when the steps ran and every assertion held.
	Pass bool `json:"pass"`

	// Trace lists rewrite events in unit order, then derive events in
	// sequence order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Units map[string]UnitOutcome `json:"units,omitempty"`

	// Counts is the size of every gate relation after synthesis.
	Counts    map[string]int      `json:"counts,omitempty"`
	Rounds    int                 `json:"rounds"`
	Proposals []logicsyn.Proposal `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Units:  map[string]UnitOutcome{},
		Counts: map[string]int{},
	}
}

// AddError records an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddRewriteTrace records one rewritten unit.
func (r *Result) AddRewriteTrace(unit string, out UnitOutcome) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventRewrite,
		Unit:   unit,
		Before: out.Before,
		After:  out.After,
		Error:  out.Err,
	})
}

// AddDeriveTrace records one derived tuple.
func (r *Result) AddDeriveTrace(seq int64, round int, rule, gate string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:  EventDerive,
		Seq:   seq,
		Round: round,
		Rule:  rule,
		Gate:  gate,
	})
}
