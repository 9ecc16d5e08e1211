package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/eqhdl/eqhdl/internal/codec"
	"github.com/eqhdl/eqhdl/internal/ir"
	"github.com/eqhdl/eqhdl/internal/program"
	"github.com/eqhdl/eqhdl/internal/schema"
)

// DefaultConstWidth is the width of a const.Int without an explicit width.
const DefaultConstWidth = 32

// CompileUnit parses a CUE value into an IR unit. The unit name is the
// struct label.
//
// The body is either an instruction list, limited to regular shapes and
// integer constants:
//
//	unit: "@f": {
//		kind:   "func"
//		inputs: ["i1", "i1", "i1"]
//		return: "i1"
//		insts: [
//			{op: "and", args: [0, 1]},
//			{op: "and", args: [0, 2]},
//			{op: "or", args: [3, 4]},
//			{op: "ret.Value", args: [5]},
//		]
//	}
//
// or a term, decoded against s, for any shape:
//
//	unit: "@top": {
//		kind:   "entity"
//		inputs: ["i32$"]
//		term:   "(Root (Add (Prb %0) (Prb %0)))"
//	}
func CompileUnit(v cue.Value, s *schema.Schema) (*ir.Unit, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	name := label(v)
	if name == "" {
		return nil, &CompileError{Field: "unit", Message: "unit needs a name", Pos: v.Pos()}
	}

	kindStr, err := requiredString(v, "kind")
	if err != nil {
		return nil, err
	}
	kind, err := ir.ParseUnitKind(kindStr)
	if err != nil {
		return nil, &CompileError{Field: "kind", Message: err.Error(), Pos: v.Pos()}
	}

	sig, err := parseSignature(v)
	if err != nil {
		return nil, err
	}

	src, err := optionalString(v, "term")
	if err != nil {
		return nil, err
	}
	insts, hasInsts := lookup(v, "insts")

	switch {
	case src != "" && hasInsts:
		return nil, &CompileError{Field: "term", Message: "term and insts are mutually exclusive", Pos: v.Pos()}
	case src != "":
		t, err := program.ParseTerm(src)
		if err != nil {
			return nil, &CompileError{Field: "term", Message: err.Error(), Pos: v.Pos()}
		}
		u, err := codec.NewDecoder(s).Decode(t, kind, name, sig)
		if err != nil {
			return nil, &CompileError{Field: "term", Message: err.Error(), Pos: v.Pos()}
		}
		return u, nil
	case hasInsts:
		return buildInsts(insts, kind, name, sig)
	default:
		return nil, &CompileError{Field: "insts", Message: "insts or term is required", Pos: v.Pos()}
	}
}

func parseSignature(v cue.Value) (ir.Signature, error) {
	var sig ir.Signature
	parse := func(field string, srcs []string) ([]*ir.Type, error) {
		types := make([]*ir.Type, len(srcs))
		for i, src := range srcs {
			t, err := ir.ParseType(src)
			if err != nil {
				return nil, &CompileError{Field: fmt.Sprintf("%s[%d]", field, i), Message: err.Error(), Pos: v.Pos()}
			}
			types[i] = t
		}
		return types, nil
	}

	for _, part := range []struct {
		field string
		dst   *[]*ir.Type
	}{
		{"inputs", &sig.Inputs},
		{"outputs", &sig.Outputs},
	} {
		srcs, err := stringList(v, part.field)
		if err != nil {
			return sig, err
		}
		if *part.dst, err = parse(part.field, srcs); err != nil {
			return sig, err
		}
	}

	ret, err := optionalString(v, "return")
	if err != nil {
		return sig, err
	}
	if ret != "" {
		t, err := ir.ParseType(ret)
		if err != nil {
			return sig, &CompileError{Field: "return", Message: err.Error(), Pos: v.Pos()}
		}
		sig.Return = t
	}
	return sig, nil
}

func buildInsts(list cue.Value, kind ir.UnitKind, name string, sig ir.Signature) (*ir.Unit, error) {
	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	u := ir.NewUnit(kind, name, sig)
	b := ir.NewBuilder(u)
	for i := 0; iter.Next(); i++ {
		iv := iter.Value()
		field := fmt.Sprintf("insts[%d]", i)

		opStr, err := requiredString(iv, "op")
		if err != nil {
			return nil, err
		}
		op, err := ir.ParseOpcode(opStr)
		if err != nil {
			return nil, &CompileError{Field: field + ".op", Message: err.Error(), Pos: iv.Pos()}
		}

		var vals []ir.Value
		if a, ok := lookup(iv, "args"); ok {
			args, err := intList(a)
			if err != nil {
				return nil, err
			}
			for _, n := range args {
				vals = append(vals, ir.Value(n))
			}
		}

		want := map[ir.Shape]int{
			ir.ShapeNullary:  0,
			ir.ShapeUnary:    1,
			ir.ShapeBinary:   2,
			ir.ShapeTernary:  3,
			ir.ShapeConstInt: 0,
		}
		n, ok := want[op.Shape()]
		if !ok {
			return nil, &CompileError{
				Field:   field + ".op",
				Message: fmt.Sprintf("%s has shape %s; describe the unit as a term instead", op, op.Shape()),
				Pos:     iv.Pos(),
			}
		}
		if len(vals) != n {
			return nil, &CompileError{
				Field:   field + ".args",
				Message: fmt.Sprintf("%s takes %d operands, got %d", op, n, len(vals)),
				Pos:     iv.Pos(),
			}
		}

		switch op.Shape() {
		case ir.ShapeConstInt:
			value, err := optionalInt(iv, "value")
			if err != nil {
				return nil, err
			}
			width, err := optionalInt(iv, "width")
			if err != nil {
				return nil, err
			}
			if width == 0 {
				width = DefaultConstWidth
			}
			b.ConstInt(ir.NewIntValue(int(width), value))
		case ir.ShapeNullary:
			b.Nullary(op)
		case ir.ShapeUnary:
			b.Unary(op, vals[0])
		case ir.ShapeBinary:
			b.Binary(op, vals[0], vals[1])
		case ir.ShapeTernary:
			b.Ternary(op, vals[0], vals[1], vals[2])
		}
		if err := b.Err(); err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: iv.Pos()}
		}
	}
	return u, nil
}
