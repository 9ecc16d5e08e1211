package codec

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/eqhdl/eqhdl/internal/ir"
	"github.com/eqhdl/eqhdl/internal/schema"
	"github.com/eqhdl/eqhdl/internal/term"
)

// ItemKind distinguishes the two kinds of linearized items.
type ItemKind uint8

const (
	// ItemLiteral is a scalar leaf: an integer, a string payload or a value
	// reference.
	ItemLiteral ItemKind = iota
	// ItemMarker stands for a constructor application whose children
	// precede it.
	ItemMarker
)

// Item is one entry of a linearized term.
type Item struct {
	Kind  ItemKind
	Leaf  term.Term // ItemLiteral
	Sym   string    // ItemMarker
	Arity int       // ItemMarker: number of children in the term
	// ID is equal for structurally identical subterms.
	ID int
}

func (it Item) String() string {
	if it.Kind == ItemLiteral {
		return it.Leaf.String()
	}
	return fmt.Sprintf("%s/%d", it.Sym, it.Arity)
}

// Linearize flattens t in post-order: every application is preceded by its
// children. Pattern variables are rejected.
func Linearize(t term.Term) ([]Item, error) {
	var (
		items []Item
		ids   = map[string]int{}
	)
	intern := func(key string) int {
		id, ok := ids[key]
		if !ok {
			id = len(ids)
			ids[key] = id
		}
		return id
	}
	var walk func(t term.Term) (int, error)
	walk = func(t term.Term) (int, error) {
		switch x := t.(type) {
		case term.I64, term.Str, term.Ref:
			id := intern(x.String())
			items = append(items, Item{Kind: ItemLiteral, Leaf: x, ID: id})
			return id, nil
		case *term.App:
			var key strings.Builder
			key.WriteString(x.Sym)
			for _, a := range x.Args {
				cid, err := walk(a)
				if err != nil {
					return 0, err
				}
				key.WriteByte(' ')
				key.WriteString(strconv.Itoa(cid))
			}
			id := intern("(" + key.String() + ")")
			items = append(items, Item{Kind: ItemMarker, Sym: x.Sym, Arity: len(x.Args), ID: id})
			return id, nil
		}
		return 0, newError(ErrCodeMalformedTerm, "", nil, "cannot linearize %s", t)
	}
	if _, err := walk(t); err != nil {
		return nil, err
	}
	return items, nil
}

// Decoder lowers terms of one schema back into IR units. A Decoder holds no
// mutable state and is safe for concurrent use; each Decode call is
// sequential.
type Decoder struct {
	schema *schema.Schema
}

// NewDecoder creates a decoder for the given schema.
func NewDecoder(s *schema.Schema) *Decoder {
	return &Decoder{schema: s}
}

// Decode rebuilds a unit from a Root-wrapped term. Ref leaves name the
// arguments of sig. Identical subterms decode to one instruction. The
// result passes ir.Verify.
func (d *Decoder) Decode(t term.Term, kind ir.UnitKind, name string, sig ir.Signature) (*ir.Unit, error) {
	root, ok := t.(*term.App)
	if !ok || root.Sym != schema.SymRoot || len(root.Args) != 1 {
		return nil, newError(ErrCodeMalformedTerm, name, nil, "expected (%s expr), got %s", schema.SymRoot, t)
	}
	items, err := Linearize(t)
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			ce.Unit = name
		}
		return nil, err
	}

	u := ir.NewUnit(kind, name, sig)
	r := &replayer{
		reg:   d.schema.Registry(),
		sch:   d.schema,
		b:     ir.NewBuilder(u),
		unit:  name,
		nargs: sig.NumArgs(),
		memo:  map[int]operand{},
	}
	if err := r.run(items); err != nil {
		return nil, err
	}
	if err := ir.Verify(u); err != nil {
		return nil, newError(ErrCodeBuild, name, err, "decoded unit does not verify")
	}
	slog.Debug("unit decoded",
		"unit", name,
		"items", len(items),
		"instructions", len(u.Insts),
	)
	return u, nil
}

type operandKind uint8

const (
	opValue  operandKind = iota // instruction result or argument
	opEffect                    // instruction without a result
	opInt
	opString
	opBlock
	opMode
	opValues
	opBlocks
)

var operandKindNames = [...]string{
	opValue:  "value",
	opEffect: "effect",
	opInt:    "i64",
	opString: "string",
	opBlock:  "block",
	opMode:   "trigger mode",
	opValues: "value vector",
	opBlocks: "block vector",
}

func (k operandKind) String() string { return operandKindNames[k] }

type operand struct {
	kind   operandKind
	value  ir.Value
	i      int64
	s      string
	block  ir.BlockID
	mode   ir.TriggerMode
	values []ir.Value
	blocks []ir.BlockID
}

type replayer struct {
	reg   *schema.Registry
	sch   *schema.Schema
	b     *ir.Builder
	unit  string
	nargs int
	stack []operand
	memo  map[int]operand
}

func (r *replayer) run(items []Item) error {
	for _, it := range items {
		if it.Kind == ItemLiteral {
			op, err := r.literal(it.Leaf)
			if err != nil {
				return err
			}
			r.stack = append(r.stack, op)
			continue
		}

		arity, err := r.arity(it)
		if err != nil {
			return err
		}
		if len(r.stack) < arity {
			return newError(ErrCodeStackUnderflow, r.unit, nil, "%s needs %d operands, stack holds %d", it.Sym, arity, len(r.stack))
		}
		args := r.stack[len(r.stack)-arity:]
		r.stack = r.stack[:len(r.stack)-arity]

		res, seen := r.memo[it.ID]
		if !seen {
			res, err = r.apply(it.Sym, args)
			if err != nil {
				return err
			}
			r.memo[it.ID] = res
		}
		r.stack = append(r.stack, res)
	}
	if len(r.stack) != 1 {
		return newError(ErrCodeStackMismatch, r.unit, nil, "%d operands left after replay, want 1", len(r.stack))
	}
	return nil
}

// arity is the number of operands a marker pops: the declared child count
// of its constructor, or the term's own count for vectors.
func (r *replayer) arity(it Item) (int, error) {
	c, ok := r.sch.Constructor(it.Sym)
	if !ok {
		return 0, newError(ErrCodeUnknownSymbol, r.unit, nil, "constructor %s", it.Sym)
	}
	if c.Variadic {
		return it.Arity, nil
	}
	return len(c.Args), nil
}

func (r *replayer) literal(leaf term.Term) (operand, error) {
	switch x := leaf.(type) {
	case term.I64:
		return operand{kind: opInt, i: int64(x)}, nil
	case term.Str:
		return operand{kind: opString, s: string(x)}, nil
	case term.Ref:
		if int(x) >= r.nargs {
			return operand{}, newError(ErrCodeUnknownValue, r.unit, nil, "%s: signature has %d arguments", x, r.nargs)
		}
		return operand{kind: opValue, value: ir.Value(x)}, nil
	}
	return operand{}, newError(ErrCodeMalformedTerm, r.unit, nil, "unexpected leaf %s", leaf)
}

// args reads operands by kind. The first mismatch is sticky.
type args struct {
	sym  string
	unit string
	list []operand
	err  error
}

func (a *args) at(i int, kind operandKind) operand {
	if a.err != nil {
		return operand{}
	}
	if i >= len(a.list) {
		a.err = newError(ErrCodeStackUnderflow, a.unit, nil, "%s: missing operand %d", a.sym, i)
		return operand{}
	}
	if a.list[i].kind != kind {
		a.err = newError(ErrCodeStackMismatch, a.unit, nil, "%s: operand %d is a %s, want %s", a.sym, i, a.list[i].kind, kind)
		return operand{}
	}
	return a.list[i]
}

func (a *args) value(i int) ir.Value { return a.at(i, opValue).value }

func (a *args) imm(i int) int { return int(a.at(i, opInt).i) }

func (a *args) block(i int) ir.BlockID { return a.at(i, opBlock).block }

func (a *args) mode(i int) ir.TriggerMode { return a.at(i, opMode).mode }

func (a *args) values(i int) []ir.Value { return a.at(i, opValues).values }

func (a *args) blocks(i int) []ir.BlockID { return a.at(i, opBlocks).blocks }

func (a *args) payload(i int, kind string) ir.Payload {
	s := a.at(i, opString).s
	if a.err != nil {
		return ir.Payload{}
	}
	p, err := ir.ParsePayload(s)
	if err == nil && p.Kind != kind {
		err = fmt.Errorf("payload kind %q, want %q", p.Kind, kind)
	}
	if err != nil {
		a.err = newError(ErrCodeMalformedTerm, a.unit, err, "%s: operand %d", a.sym, i)
	}
	return p
}

func (r *replayer) apply(sym string, list []operand) (operand, error) {
	a := &args{sym: sym, unit: r.unit, list: list}

	switch sym {
	case schema.SymRoot:
		if len(list) == 1 && list[0].kind == opEffect {
			return list[0], nil
		}
		v := a.value(0)
		return operand{kind: opValue, value: v}, a.err

	case schema.SymVecExpr:
		vals := make([]ir.Value, len(list))
		for i := range list {
			vals[i] = a.value(i)
		}
		return operand{kind: opValues, values: vals}, a.err

	case schema.SymVecBlock:
		blocks := make([]ir.BlockID, len(list))
		for i := range list {
			blocks[i] = a.block(i)
		}
		return operand{kind: opBlocks, blocks: blocks}, a.err

	case schema.SymBlock:
		id := a.imm(0)
		if a.err != nil {
			return operand{}, a.err
		}
		if id < 0 {
			return operand{}, newError(ErrCodeMalformedTerm, r.unit, nil, "negative block %d", id)
		}
		r.b.EnsureBlocks(ir.BlockID(id))
		return operand{kind: opBlock, block: ir.BlockID(id)}, nil
	}
	if mode, ok := schema.TriggerOf(sym); ok {
		return operand{kind: opMode, mode: mode}, nil
	}

	op, err := r.reg.OperationOf(sym)
	if err != nil {
		return operand{}, newError(ErrCodeUnknownSymbol, r.unit, err, "cannot decode %s", sym)
	}

	b := r.b
	switch op {
	case ir.OpConstInt:
		p := a.payload(0, ir.PayloadInt)
		if a.err == nil {
			b.ConstInt(p.Int)
		}
	case ir.OpConstTime:
		p := a.payload(0, ir.PayloadTime)
		if a.err == nil {
			b.ConstTime(p.Time)
		}

	case ir.OpAlias, ir.OpNot, ir.OpNeg, ir.OpSig, ir.OpPrb, ir.OpVar, ir.OpLd, ir.OpRetValue:
		x := a.value(0)
		if a.err == nil {
			b.Unary(op, x)
		}

	case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpXor,
		ir.OpSmul, ir.OpSdiv, ir.OpSmod, ir.OpSrem,
		ir.OpUmul, ir.OpUdiv, ir.OpUmod, ir.OpUrem,
		ir.OpEq, ir.OpNeq, ir.OpSlt, ir.OpSgt, ir.OpSle, ir.OpSge,
		ir.OpUlt, ir.OpUgt, ir.OpUle, ir.OpUge,
		ir.OpMux, ir.OpCon, ir.OpSt:
		x, y := a.value(0), a.value(1)
		if a.err == nil {
			b.Binary(op, x, y)
		}

	case ir.OpDrv, ir.OpDel:
		x, y, z := a.value(0), a.value(1), a.value(2)
		if a.err == nil {
			b.Ternary(op, x, y, z)
		}

	case ir.OpShl, ir.OpShr:
		base, hidden, amount := a.value(0), a.value(1), a.value(2)
		if a.err == nil {
			b.Shift(op, base, hidden, amount)
		}

	case ir.OpDrvCond:
		sig, val, delay, cond := a.value(0), a.value(1), a.value(2), a.value(3)
		if a.err == nil {
			b.DrvCond(sig, val, delay, cond)
		}

	case ir.OpReg:
		sig, val, mode, trig := a.value(0), a.value(1), a.mode(2), a.value(3)
		if a.err == nil {
			b.Reg(sig, val, mode, trig)
		}

	case ir.OpArrayUniform:
		x, n := a.value(0), a.imm(1)
		if a.err == nil {
			b.ArrayUniform(x, n)
		}

	case ir.OpArray:
		vals := a.values(0)
		if a.err == nil {
			b.Array(vals)
		}
	case ir.OpStruct:
		vals := a.values(0)
		if a.err == nil {
			b.Struct(vals)
		}

	case ir.OpExtField:
		x, idx := a.value(0), a.imm(1)
		if a.err == nil {
			b.ExtField(x, idx)
		}
	case ir.OpExtSlice:
		x, off, n := a.value(0), a.imm(1), a.imm(2)
		if a.err == nil {
			b.ExtSlice(x, off, n)
		}
	case ir.OpInsField:
		target, val, idx := a.value(0), a.value(1), a.imm(2)
		if a.err == nil {
			b.InsField(target, val, idx)
		}
	case ir.OpInsSlice:
		target, val, off, n := a.value(0), a.value(1), a.imm(2), a.imm(3)
		if a.err == nil {
			b.InsSlice(target, val, off, n)
		}

	case ir.OpCall:
		p, vals := a.payload(0, ir.PayloadExt), a.values(1)
		if a.err == nil {
			b.Call(p.Ext, vals)
		}
	case ir.OpInst:
		p, ins, outs := a.payload(0, ir.PayloadExt), a.values(1), a.values(2)
		if a.err == nil {
			b.Inst(p.Ext, ins, outs)
		}

	case ir.OpHalt, ir.OpRet:
		b.Nullary(op)

	case ir.OpPhi:
		vals, blocks := a.values(0), a.blocks(1)
		if a.err == nil {
			b.Phi(vals, blocks)
		}
	case ir.OpBr:
		target := a.block(0)
		if a.err == nil {
			b.Br(target)
		}
	case ir.OpBrCond:
		cond, ifFalse, ifTrue := a.value(0), a.block(1), a.block(2)
		if a.err == nil {
			b.BrCond(cond, ifFalse, ifTrue)
		}
	case ir.OpWait:
		target, sigs := a.block(0), a.values(1)
		if a.err == nil {
			b.Wait(target, sigs)
		}
	case ir.OpWaitTime:
		target, timeout, sigs := a.block(0), a.value(1), a.values(2)
		if a.err == nil {
			b.WaitTime(target, timeout, sigs)
		}

	default:
		return operand{}, newError(ErrCodeUnsupportedOpcode, r.unit, nil, "no decoding for %s", op)
	}

	if a.err != nil {
		return operand{}, a.err
	}
	if err := b.Err(); err != nil {
		return operand{}, newError(ErrCodeBuild, r.unit, err, "%s", sym)
	}
	u := b.Unit()
	last := u.Insts[len(u.Insts)-1]
	if !op.HasResult() {
		return operand{kind: opEffect}, nil
	}
	return operand{kind: opValue, value: last.Result}, nil
}
