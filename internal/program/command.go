package program

import (
	"fmt"
	"strings"

	"github.com/eqhdl/eqhdl/internal/term"
)

// Command is one DSL command. Commands print in the syntax Parse accepts.
type Command interface {
	isCommand()
	String() string
}

// Variant is one constructor of a datatype.
type Variant struct {
	Name string
	Args []term.Sort
}

func (v Variant) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(v.Name)
	for _, s := range v.Args {
		sb.WriteByte(' ')
		sb.WriteString(string(s))
	}
	sb.WriteByte(')')
	return sb.String()
}

// DeclareDatatype declares a sort and its constructors.
type DeclareDatatype struct {
	Name     term.Sort
	Variants []Variant
}

// DeclareSort declares a sort. With a container it declares a vector sort
// over Elem whose variadic constructor carries the sort's own name.
type DeclareSort struct {
	Name      term.Sort
	Container string
	Elem      term.Sort
}

// Let binds a ground term to a name.
type Let struct {
	Name string
	Term term.Term
}

// Ruleset declares a named rule set.
type Ruleset struct {
	Name string
}

// Rewrite is a rewrite rule. Bidirectional rules also apply right to left.
type Rewrite struct {
	Name          string
	LHS           term.Term
	RHS           term.Term
	Ruleset       string
	Bidirectional bool
}

// RunSchedule runs a schedule.
type RunSchedule struct {
	Schedule Schedule
}

func (DeclareDatatype) isCommand() {}
func (DeclareSort) isCommand()     {}
func (Let) isCommand()             {}
func (Ruleset) isCommand()         {}
func (Rewrite) isCommand()         {}
func (RunSchedule) isCommand()     {}

func (c DeclareDatatype) String() string {
	parts := make([]string, len(c.Variants))
	for i, v := range c.Variants {
		parts[i] = v.String()
	}
	return fmt.Sprintf("(datatype %s %s)", c.Name, strings.Join(parts, " "))
}

func (c DeclareSort) String() string {
	if c.Container == "" {
		return fmt.Sprintf("(sort %s)", c.Name)
	}
	return fmt.Sprintf("(sort %s (%s %s))", c.Name, c.Container, c.Elem)
}

func (c Let) String() string {
	return fmt.Sprintf("(let %s %s)", c.Name, c.Term)
}

func (c Ruleset) String() string {
	return fmt.Sprintf("(ruleset %s)", c.Name)
}

func (c Rewrite) String() string {
	head := "rewrite"
	if c.Bidirectional {
		head = "birewrite"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "(%s %s %s", head, c.LHS, c.RHS)
	if c.Ruleset != "" {
		fmt.Fprintf(&sb, " :ruleset %s", c.Ruleset)
	}
	if c.Name != "" {
		fmt.Fprintf(&sb, " :name %s", c.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

func (c RunSchedule) String() string {
	return fmt.Sprintf("(run-schedule %s)", c.Schedule)
}

// Schedule is a schedule expression.
type Schedule interface {
	isSchedule()
	String() string
}

// Run applies a ruleset N times. An empty ruleset names the default set.
type Run struct {
	Ruleset string
	N       int
}

// Repeat runs Body N times.
type Repeat struct {
	N    int
	Body []Schedule
}

// Saturate runs Body until an iteration yields no change.
type Saturate struct {
	Body []Schedule
}

// Seq runs each schedule in order.
type Seq struct {
	Body []Schedule
}

func (Run) isSchedule()      {}
func (Repeat) isSchedule()   {}
func (Saturate) isSchedule() {}
func (Seq) isSchedule()      {}

func (s Run) String() string {
	if s.Ruleset == "" {
		return fmt.Sprintf("(run %d)", s.N)
	}
	return fmt.Sprintf("(run %s %d)", s.Ruleset, s.N)
}

func (s Repeat) String() string {
	return fmt.Sprintf("(repeat %d %s)", s.N, joinSchedules(s.Body))
}

func (s Saturate) String() string {
	return fmt.Sprintf("(saturate %s)", joinSchedules(s.Body))
}

func (s Seq) String() string {
	return fmt.Sprintf("(seq %s)", joinSchedules(s.Body))
}

func joinSchedules(body []Schedule) string {
	parts := make([]string, len(body))
	for i, s := range body {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}
