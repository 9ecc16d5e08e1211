package ir

import (
	"fmt"
	"strings"
)

// String renders the unit in assembly syntax, e.g.
//
//	entity @top (i32$ %0) -> () {
//	  %1 = const i32 1
//	  %2 = add i32 %1, %1
//	}
func (u *Unit) String() string {
	var sb strings.Builder
	sb.WriteString(u.Kind.String())
	sb.WriteByte(' ')
	sb.WriteString(u.Name)
	sb.WriteString(" (")
	for i, t := range u.Sig.Inputs {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %%%d", t, i)
	}
	sb.WriteString(") -> (")
	for i, t := range u.Sig.Outputs {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %%%d", t, len(u.Sig.Inputs)+i)
	}
	sb.WriteByte(')')
	if u.Kind == Function {
		fmt.Fprintf(&sb, " %s", u.Sig.Return)
	}
	sb.WriteString(" {\n")

	current := BlockID(-1)
	for _, inst := range u.Insts {
		if u.Kind != Entity && inst.Block != current {
			current = inst.Block
			fmt.Fprintf(&sb, "%s:\n", u.blockName(current))
		}
		sb.WriteString("  ")
		sb.WriteString(u.FormatInst(inst))
		sb.WriteByte('\n')
	}
	sb.WriteString("}\n")
	return sb.String()
}

func (u *Unit) blockName(id BlockID) string {
	if id >= 0 && int(id) < len(u.Blocks) {
		return u.Blocks[id].Name
	}
	return fmt.Sprintf("bb%d", id)
}

// FormatInst renders a single instruction.
func (u *Unit) FormatInst(inst *Inst) string {
	var sb strings.Builder
	if inst.Result != NoValue {
		fmt.Fprintf(&sb, "%%%d = ", inst.Result)
	}
	sb.WriteString(inst.Op.Mnemonic())

	vals := func(vs []Value) string {
		parts := make([]string, len(vs))
		for i, v := range vs {
			parts[i] = fmt.Sprintf("%%%d", v)
		}
		return strings.Join(parts, ", ")
	}
	blocks := func(bs []BlockID) string {
		parts := make([]string, len(bs))
		for i, b := range bs {
			parts[i] = "%" + u.blockName(b)
		}
		return strings.Join(parts, ", ")
	}

	switch inst.Op.Shape() {
	case ShapeConstInt:
		fmt.Fprintf(&sb, " %s", inst.Int)
	case ShapeConstTime:
		fmt.Fprintf(&sb, " time %s", inst.Time)
	case ShapeCall:
		fmt.Fprintf(&sb, " %s %s (%s)", inst.Type, inst.Ext.Name, vals(inst.Args))
	case ShapeInst:
		fmt.Fprintf(&sb, " %s (%s) -> (%s)", inst.Ext.Name, vals(inst.Args[:inst.Ins]), vals(inst.Args[inst.Ins:]))
	case ShapeReg:
		fmt.Fprintf(&sb, " %s %%%d, %%%d %s %%%d", u.TypeOf(inst.Args[0]), inst.Args[0], inst.Args[1], inst.Mode, inst.Args[2])
	case ShapeBranch, ShapeWait, ShapeWaitTime:
		fmt.Fprintf(&sb, " %s", blocks(inst.Blocks))
		if len(inst.Args) > 0 {
			fmt.Fprintf(&sb, ", %s", vals(inst.Args))
		}
	case ShapeCondBranch:
		fmt.Fprintf(&sb, " %%%d, %s", inst.Args[0], blocks(inst.Blocks))
	case ShapePhi:
		parts := make([]string, len(inst.Args))
		for i := range inst.Args {
			parts[i] = fmt.Sprintf("[%%%d, %%%s]", inst.Args[i], u.blockName(inst.Blocks[i]))
		}
		fmt.Fprintf(&sb, " %s %s", inst.Type, strings.Join(parts, ", "))
	default:
		if inst.Result != NoValue {
			fmt.Fprintf(&sb, " %s", inst.Type)
		}
		if len(inst.Args) > 0 {
			fmt.Fprintf(&sb, " %s", vals(inst.Args))
		}
		for _, imm := range inst.Imms {
			fmt.Fprintf(&sb, ", %d", imm)
		}
	}
	return sb.String()
}
