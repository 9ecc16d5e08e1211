package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/eqhdl/eqhdl/internal/logicsyn"
	"github.com/eqhdl/eqhdl/internal/store"
)

// NetworkSpec is a gate network for logic synthesis.
type NetworkSpec struct {
	Name  string
	Gates []store.Gate
	// Rules names the rules to run; empty means logicsyn.DefaultRules.
	Rules     []string
	MaxRounds int
}

// CompileNetwork parses a CUE value into a NetworkSpec:
//
//	network: shared: {
//		and: [{id: 1, a: 10, b: 11, cost: 5}, {id: 2, a: 10, b: 12, cost: 5}]
//		or: [{id: 3, a: 1, b: 2, cost: 2}]
//		rules: ["factor-or"]
//		max_rounds: 16
//	}
func CompileNetwork(v cue.Value) (*NetworkSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &NetworkSpec{Name: label(v)}
	for _, rel := range []struct {
		field string
		rel   store.Relation
	}{
		{"and", store.AndGates},
		{"or", store.OrGates},
	} {
		list, ok := lookup(v, rel.field)
		if !ok {
			continue
		}
		gates, err := parseGates(list, rel.field, rel.rel)
		if err != nil {
			return nil, err
		}
		spec.Gates = append(spec.Gates, gates...)
	}

	var err error
	if spec.Rules, err = stringList(v, "rules"); err != nil {
		return nil, err
	}
	rounds, err := optionalInt(v, "max_rounds")
	if err != nil {
		return nil, err
	}
	spec.MaxRounds = int(rounds)
	return spec, nil
}

func parseGates(list cue.Value, field string, rel store.Relation) ([]store.Gate, error) {
	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var gates []store.Gate
	for i := 0; iter.Next(); i++ {
		gv := iter.Value()
		g := store.Gate{Rel: rel}
		for _, col := range []struct {
			name string
			dst  *int64
		}{
			{"id", &g.ID},
			{"a", &g.A},
			{"b", &g.B},
			{"cost", &g.Cost},
		} {
			f, ok := lookup(gv, col.name)
			if !ok {
				return nil, &CompileError{
					Field:   fmt.Sprintf("%s[%d].%s", field, i, col.name),
					Message: col.name + " is required",
					Pos:     gv.Pos(),
				}
			}
			if *col.dst, err = f.Int64(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		gates = append(gates, g)
	}
	return gates, nil
}

// RuleSet resolves the rule names against the built-in rules.
func (n *NetworkSpec) RuleSet() ([]logicsyn.Rule, error) {
	if len(n.Rules) == 0 {
		return logicsyn.DefaultRules(), nil
	}
	known := map[string]logicsyn.Rule{}
	for _, r := range logicsyn.DefaultRules() {
		known[r.Name] = r
	}
	rules := make([]logicsyn.Rule, 0, len(n.Rules))
	for _, name := range n.Rules {
		r, ok := known[name]
		if !ok {
			return nil, fmt.Errorf("network %s: unknown rule %q", n.Name, name)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Options returns the engine options the network declares.
func (n *NetworkSpec) Options() ([]logicsyn.Option, error) {
	rules, err := n.RuleSet()
	if err != nil {
		return nil, err
	}
	opts := []logicsyn.Option{logicsyn.WithRules(rules...)}
	if n.MaxRounds > 0 {
		opts = append(opts, logicsyn.WithMaxRounds(n.MaxRounds))
	}
	return opts, nil
}
