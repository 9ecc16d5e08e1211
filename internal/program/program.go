// Package program implements the Program algebra and the s-expression DSL
// it is written in.
//
// A Program accumulates four ordered command categories (schema, facts,
// rules, schedules) plus a set of bound names. Combine concatenates each
// category and unions the bindings; Empty is its identity. Combine is
// associative, so independently authored rule and schedule sources can be
// grouped in any order without changing the command stream.
package program

import (
	"slices"
	"strings"
)

// Category orders commands in the stream produced by Program.Commands.
type Category int

const (
	CategorySchema Category = iota
	CategoryFacts
	CategoryRules
	CategorySchedules
	categoryCount
)

func (c Category) String() string {
	switch c {
	case CategorySchema:
		return "schema"
	case CategoryFacts:
		return "facts"
	case CategoryRules:
		return "rules"
	case CategorySchedules:
		return "schedules"
	}
	return "unknown"
}

// CategoryOf classifies a command.
func CategoryOf(cmd Command) Category {
	switch cmd.(type) {
	case DeclareDatatype, DeclareSort:
		return CategorySchema
	case Let:
		return CategoryFacts
	case Ruleset, Rewrite:
		return CategoryRules
	default:
		return CategorySchedules
	}
}

// Program is an immutable command accumulator. The zero value is the empty
// program.
type Program struct {
	cmds     [categoryCount][]Command
	bindings []string // sorted, unique
}

// Empty returns the identity of Combine.
func Empty() Program { return Program{} }

// New builds a program from commands, placing each in its category while
// keeping relative order within a category.
func New(cmds ...Command) Program {
	var p Program
	for _, c := range cmds {
		cat := CategoryOf(c)
		p.cmds[cat] = append(p.cmds[cat], c)
		if let, ok := c.(Let); ok {
			p.bindings = insertSorted(p.bindings, let.Name)
		}
	}
	return p
}

// Combine returns p followed by q, per category.
func Combine(p, q Program) Program {
	var r Program
	for cat := range r.cmds {
		r.cmds[cat] = slices.Concat(p.cmds[cat], q.cmds[cat])
	}
	r.bindings = slices.Clone(p.bindings)
	for _, b := range q.bindings {
		r.bindings = insertSorted(r.bindings, b)
	}
	return r
}

// Concat folds Combine over ps from the left.
func Concat(ps ...Program) Program {
	r := Empty()
	for _, p := range ps {
		r = Combine(r, p)
	}
	return r
}

// Commands returns the flat command stream: schema, facts, rules, then
// schedules, each in accumulation order.
func (p Program) Commands() []Command {
	out := make([]Command, 0, p.Len())
	for _, cat := range p.cmds {
		out = append(out, cat...)
	}
	return out
}

// Category returns the commands of one category.
func (p Program) Category(c Category) []Command {
	return slices.Clone(p.cmds[c])
}

// Len is the total number of commands.
func (p Program) Len() int {
	n := 0
	for _, cat := range p.cmds {
		n += len(cat)
	}
	return n
}

// IsEmpty reports whether p has no commands.
func (p Program) IsEmpty() bool { return p.Len() == 0 }

// Bindings returns the names bound by let commands, sorted.
func (p Program) Bindings() []string { return slices.Clone(p.bindings) }

// Equal reports whether both programs produce the same command stream and
// bind the same names.
func (p Program) Equal(q Program) bool {
	for cat := range p.cmds {
		if len(p.cmds[cat]) != len(q.cmds[cat]) {
			return false
		}
		for i := range p.cmds[cat] {
			if p.cmds[cat][i].String() != q.cmds[cat][i].String() {
				return false
			}
		}
	}
	return slices.Equal(p.bindings, q.bindings)
}

// String renders the command stream, one command per line.
func (p Program) String() string {
	var sb strings.Builder
	for _, c := range p.Commands() {
		sb.WriteString(c.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

func insertSorted(s []string, v string) []string {
	i, found := slices.BinarySearch(s, v)
	if found {
		return s
	}
	return slices.Insert(s, i, v)
}
