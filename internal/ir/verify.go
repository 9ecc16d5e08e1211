package ir

import (
	"fmt"
	"strings"
)

// VerifyError lists every problem found in a unit.
type VerifyError struct {
	Unit     string
	Problems []string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify %s: %s", e.Unit, strings.Join(e.Problems, "; "))
}

// Verify checks that u is well formed: operands are defined before use,
// operand counts match each opcode's shape, block references resolve, and
// operand types agree with the opcode.
func Verify(u *Unit) error {
	v := &verifier{u: u}
	v.run()
	if len(v.problems) == 0 {
		return nil
	}
	return &VerifyError{Unit: u.Name, Problems: v.problems}
}

type verifier struct {
	u        *Unit
	problems []string
}

func (v *verifier) errorf(i int, inst *Inst, format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf("#%d %s: %s", i, inst.Op, fmt.Sprintf(format, args...)))
}

func (v *verifier) run() {
	u := v.u
	if len(u.types) != u.Sig.NumArgs()+countResults(u) {
		v.problems = append(v.problems, "value table out of sync with instructions")
		return
	}
	for i, inst := range u.Insts {
		if !inst.Op.Valid() {
			v.errorf(i, inst, "invalid opcode")
			continue
		}
		if u.Kind == Entity && (inst.Op.IsTerminator() || inst.Op == OpPhi) {
			v.errorf(i, inst, "control flow in entity")
		}
		if inst.Block < 0 || int(inst.Block) >= len(u.Blocks) {
			v.errorf(i, inst, "placed in unknown block %d", inst.Block)
		}
		for _, a := range inst.Args {
			if !u.Defined(a) {
				v.errorf(i, inst, "undefined operand %%%d", a)
				continue
			}
			if d := u.defs[a]; d >= i {
				v.errorf(i, inst, "operand %%%d used before definition", a)
			}
		}
		for _, b := range inst.Blocks {
			if b < 0 || int(b) >= len(u.Blocks) {
				v.errorf(i, inst, "unknown block %d", b)
			}
		}
		if inst.Op.HasResult() != (inst.Result != NoValue) {
			v.errorf(i, inst, "result presence does not match opcode")
		}
		if !v.arity(i, inst) {
			continue
		}
		v.types(i, inst)
	}
}

func countResults(u *Unit) int {
	n := 0
	for _, inst := range u.Insts {
		if inst.Result != NoValue {
			n++
		}
	}
	return n
}

func (v *verifier) arity(i int, inst *Inst) bool {
	want, imms, blocks := -1, 0, 0
	switch inst.Op.Shape() {
	case ShapeNullary, ShapeConstInt, ShapeConstTime:
		want = 0
	case ShapeUnary:
		want = 1
	case ShapeBinary:
		want = 2
	case ShapeTernary, ShapeShift, ShapeReg:
		want = 3
	case ShapeDrvCond:
		want = 4
	case ShapeExtField, ShapeArrayUniform:
		want, imms = 1, 1
	case ShapeExtSlice:
		want, imms = 1, 2
	case ShapeInsField:
		want, imms = 2, 1
	case ShapeInsSlice:
		want, imms = 2, 2
	case ShapeBranch:
		want, blocks = 0, 1
	case ShapeCondBranch:
		want, blocks = 1, 2
	case ShapeWait:
		blocks = 1
	case ShapeWaitTime:
		blocks = 1
		if len(inst.Args) < 1 {
			v.errorf(i, inst, "missing timeout")
			return false
		}
	case ShapePhi:
		blocks = len(inst.Args)
		if blocks == 0 {
			v.errorf(i, inst, "phi without incoming values")
			return false
		}
	case ShapeInst:
		if inst.Ins < 0 || inst.Ins > len(inst.Args) {
			v.errorf(i, inst, "bad input count %d", inst.Ins)
			return false
		}
	}
	ok := true
	if want >= 0 && len(inst.Args) != want {
		v.errorf(i, inst, "expects %d operands, has %d", want, len(inst.Args))
		ok = false
	}
	if len(inst.Imms) != imms {
		v.errorf(i, inst, "expects %d scalar fields, has %d", imms, len(inst.Imms))
		ok = false
	}
	if len(inst.Blocks) != blocks {
		v.errorf(i, inst, "expects %d blocks, has %d", blocks, len(inst.Blocks))
		ok = false
	}
	return ok
}

func (v *verifier) types(i int, inst *Inst) {
	u := v.u
	arg := func(n int) *Type { return u.TypeOf(inst.Args[n]) }
	for _, a := range inst.Args {
		if !u.Defined(a) {
			return
		}
	}

	switch op := inst.Op; {
	case op.Shape() == ShapeBinary && op != OpMux && op != OpSt:
		if !arg(0).Equal(arg(1)) {
			v.errorf(i, inst, "operand types %s and %s differ", arg(0), arg(1))
		}
		if op.IsComparison() && !inst.Type.Equal(IntType(1)) {
			v.errorf(i, inst, "comparison yields %s, not i1", inst.Type)
		}
	case op == OpMux:
		if arg(0).Kind != ArrayKind {
			v.errorf(i, inst, "mux over %s", arg(0))
		}
	case op == OpSt:
		if arg(0).Kind != PointerKind || !arg(0).Elem.Equal(arg(1)) {
			v.errorf(i, inst, "store of %s through %s", arg(1), arg(0))
		}
	case op == OpPrb:
		if arg(0).Kind != SignalKind {
			v.errorf(i, inst, "probe of %s", arg(0))
		}
	case op == OpLd:
		if arg(0).Kind != PointerKind {
			v.errorf(i, inst, "load from %s", arg(0))
		}
	case op == OpDrv || op == OpDrvCond:
		if arg(0).Kind != SignalKind || !arg(0).Elem.Equal(arg(1)) {
			v.errorf(i, inst, "drive of %s onto %s", arg(1), arg(0))
		}
		if arg(2).Kind != TimeKind {
			v.errorf(i, inst, "delay is %s, not time", arg(2))
		}
	case op == OpReg:
		if arg(0).Kind != SignalKind || !arg(0).Elem.Equal(arg(1)) {
			v.errorf(i, inst, "register of %s onto %s", arg(1), arg(0))
		}
	case op == OpBrCond:
		if !arg(0).Equal(IntType(1)) {
			v.errorf(i, inst, "branch condition is %s", arg(0))
		}
	case op == OpWaitTime:
		if arg(0).Kind != TimeKind {
			v.errorf(i, inst, "timeout is %s, not time", arg(0))
		}
	case op == OpPhi:
		for n := 1; n < len(inst.Args); n++ {
			if !arg(n).Equal(arg(0)) {
				v.errorf(i, inst, "incoming types %s and %s differ", arg(0), arg(n))
			}
		}
	case op == OpArray:
		for n := 1; n < len(inst.Args); n++ {
			if !arg(n).Equal(arg(0)) {
				v.errorf(i, inst, "element types %s and %s differ", arg(0), arg(n))
			}
		}
	case op == OpInsField:
		if ft, err := fieldType(arg(0), inst.Imms[0]); err != nil {
			v.errorf(i, inst, "%v", err)
		} else if !ft.Equal(arg(1)) {
			v.errorf(i, inst, "inserting %s into field of type %s", arg(1), ft)
		}
	case op == OpExtField:
		if _, err := fieldType(arg(0), inst.Imms[0]); err != nil {
			v.errorf(i, inst, "%v", err)
		}
	case op == OpExtSlice || op == OpInsSlice:
		if _, err := sliceType(arg(0), inst.Imms[0], inst.Imms[1]); err != nil {
			v.errorf(i, inst, "%v", err)
		}
	case op == OpRetValue:
		if u.Kind == Function && !u.Sig.Return.Equal(arg(0)) {
			v.errorf(i, inst, "returns %s from function returning %s", arg(0), u.Sig.Return)
		}
	}
}
