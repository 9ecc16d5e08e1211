package logicsyn

import (
	"github.com/eqhdl/eqhdl/internal/ir"
	"github.com/eqhdl/eqhdl/internal/store"
)

// CostModel gives the area of a gate per bit of width.
type CostModel map[ir.Opcode]int64

// DefaultCostModel prices a conjunction well above a disjunction, the
// regime in which FactorOr pays off.
var DefaultCostModel = CostModel{
	ir.OpAnd: 5,
	ir.OpOr:  2,
}

// GatesFromUnit derives gate tuples from the integer and/or instructions of
// u. Tuple ids and operands are the unit's value ids; the cost is the
// model's price times the bit width. Other instructions are skipped, so
// their results appear as free inputs.
func GatesFromUnit(u *ir.Unit, costs CostModel) []store.Gate {
	if costs == nil {
		costs = DefaultCostModel
	}
	var gates []store.Gate
	for _, inst := range u.Insts {
		var rel store.Relation
		switch inst.Op {
		case ir.OpAnd:
			rel = store.AndGates
		case ir.OpOr:
			rel = store.OrGates
		default:
			continue
		}
		if inst.Type == nil || inst.Type.Kind != ir.IntKind || len(inst.Args) != 2 {
			continue
		}
		gates = append(gates, store.Gate{
			Rel:  rel,
			ID:   int64(inst.Result),
			A:    int64(inst.Args[0]),
			B:    int64(inst.Args[1]),
			Cost: costs[inst.Op] * int64(inst.Type.Width),
		})
	}
	return gates
}
