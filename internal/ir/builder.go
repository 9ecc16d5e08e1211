package ir

import "fmt"

// Builder appends instructions to a unit. It never mutates existing
// instructions.
//
// The first error encountered (an undefined operand, a result type that
// cannot be inferred) is sticky: subsequent calls are no-ops returning
// NoValue, and Err reports it.
type Builder struct {
	unit  *Unit
	block BlockID
	err   error
}

// NewBuilder returns a builder appending to u. If u has no blocks an entry
// block is created.
func NewBuilder(u *Unit) *Builder {
	if len(u.Blocks) == 0 {
		u.Blocks = append(u.Blocks, Block{Name: "entry"})
	}
	return &Builder{unit: u}
}

// Unit returns the unit being built.
func (b *Builder) Unit() *Unit { return b.unit }

// Err returns the first error encountered, if any.
func (b *Builder) Err() error { return b.err }

// Block appends a new block and returns its id. The insertion point is not
// moved.
func (b *Builder) Block(name string) BlockID {
	b.unit.Blocks = append(b.unit.Blocks, Block{Name: name})
	return BlockID(len(b.unit.Blocks) - 1)
}

// EnsureBlocks grows the block list until id is valid.
func (b *Builder) EnsureBlocks(id BlockID) {
	for int(id) >= len(b.unit.Blocks) {
		b.Block(fmt.Sprintf("bb%d", len(b.unit.Blocks)))
	}
}

// SetBlock moves the insertion point to the given block.
func (b *Builder) SetBlock(id BlockID) {
	if b.err == nil && (id < 0 || int(id) >= len(b.unit.Blocks)) {
		b.err = fmt.Errorf("set block: unknown block %d", id)
		return
	}
	b.block = id
}

func (b *Builder) fail(op Opcode, format string, args ...any) Value {
	if b.err == nil {
		b.err = fmt.Errorf("%s: %s", op, fmt.Sprintf(format, args...))
	}
	return NoValue
}

func (b *Builder) check(op Opcode, vals ...Value) bool {
	if b.err != nil {
		return false
	}
	for _, v := range vals {
		if !b.unit.Defined(v) {
			b.fail(op, "undefined value %%%d", v)
			return false
		}
	}
	return true
}

func (b *Builder) checkBlocks(op Opcode, blocks ...BlockID) bool {
	for _, id := range blocks {
		if id < 0 || int(id) >= len(b.unit.Blocks) {
			b.fail(op, "unknown block %d", id)
			return false
		}
	}
	return true
}

func (b *Builder) emit(inst *Inst) Value {
	inst.Block = b.block
	if inst.Type == nil {
		inst.Type = VoidType
	}
	return b.unit.appendInst(inst)
}

func (b *Builder) typeOf(v Value) *Type { return b.unit.TypeOf(v) }

// ConstInt appends an integer constant.
func (b *Builder) ConstInt(v IntValue) Value {
	if b.err != nil {
		return NoValue
	}
	if v.Width <= 0 {
		return b.fail(OpConstInt, "bad width %d", v.Width)
	}
	return b.emit(&Inst{Op: OpConstInt, Type: IntType(v.Width), Int: v})
}

// ConstTime appends a time constant.
func (b *Builder) ConstTime(v TimeValue) Value {
	if b.err != nil {
		return NoValue
	}
	return b.emit(&Inst{Op: OpConstTime, Type: TimeType, Time: v})
}

// Unary appends alias, not, neg, sig, prb, var, ld or ret with a value.
func (b *Builder) Unary(op Opcode, x Value) Value {
	if op.Shape() != ShapeUnary {
		return b.fail(op, "not a unary opcode")
	}
	if !b.check(op, x) {
		return NoValue
	}
	t := b.typeOf(x)
	switch op {
	case OpSig:
		t = SignalType(t)
	case OpVar:
		t = PointerType(t)
	case OpPrb:
		if t.Kind != SignalKind {
			return b.fail(op, "operand %%%d is %s, not a signal", x, t)
		}
		t = t.Elem
	case OpLd:
		if t.Kind != PointerKind {
			return b.fail(op, "operand %%%d is %s, not a pointer", x, t)
		}
		t = t.Elem
	case OpRetValue:
		t = VoidType
	}
	return b.emit(&Inst{Op: op, Type: t, Args: []Value{x}})
}

// Binary appends an arithmetic, logical or comparison instruction, or one of
// mux, con and st.
func (b *Builder) Binary(op Opcode, x, y Value) Value {
	if op.Shape() != ShapeBinary {
		return b.fail(op, "not a binary opcode")
	}
	if !b.check(op, x, y) {
		return NoValue
	}
	t := b.typeOf(x)
	switch {
	case op.IsComparison():
		t = IntType(1)
	case op == OpMux:
		if t.Kind != ArrayKind {
			return b.fail(op, "operand %%%d is %s, not an array", x, t)
		}
		t = t.Elem
	case !op.HasResult():
		t = VoidType
	}
	return b.emit(&Inst{Op: op, Type: t, Args: []Value{x, y}})
}

// Ternary appends drv or del.
func (b *Builder) Ternary(op Opcode, x, y, z Value) Value {
	if op.Shape() != ShapeTernary {
		return b.fail(op, "not a ternary opcode")
	}
	if !b.check(op, x, y, z) {
		return NoValue
	}
	return b.emit(&Inst{Op: op, Args: []Value{x, y, z}})
}

// Nullary appends halt or ret.
func (b *Builder) Nullary(op Opcode) Value {
	if op.Shape() != ShapeNullary {
		return b.fail(op, "not a nullary opcode")
	}
	if b.err != nil {
		return NoValue
	}
	return b.emit(&Inst{Op: op})
}

// Shift appends shl or shr of base with bits shifted in from hidden.
func (b *Builder) Shift(op Opcode, base, hidden, amount Value) Value {
	if op.Shape() != ShapeShift {
		return b.fail(op, "not a shift opcode")
	}
	if !b.check(op, base, hidden, amount) {
		return NoValue
	}
	return b.emit(&Inst{Op: op, Type: b.typeOf(base), Args: []Value{base, hidden, amount}})
}

// Mux selects an element of an array value.
func (b *Builder) Mux(array, sel Value) Value { return b.Binary(OpMux, array, sel) }

// Reg appends a register storing value into signal on trigger.
func (b *Builder) Reg(signal, value Value, mode TriggerMode, trigger Value) Value {
	if !b.check(OpReg, signal, value, trigger) {
		return NoValue
	}
	if mode > TriggerBoth {
		return b.fail(OpReg, "bad trigger mode %d", mode)
	}
	return b.emit(&Inst{Op: OpReg, Args: []Value{signal, value, trigger}, Mode: mode})
}

// ArrayUniform appends an array of count copies of x.
func (b *Builder) ArrayUniform(x Value, count int) Value {
	if !b.check(OpArrayUniform, x) {
		return NoValue
	}
	if count < 0 {
		return b.fail(OpArrayUniform, "negative count %d", count)
	}
	return b.emit(&Inst{Op: OpArrayUniform, Type: ArrayType(count, b.typeOf(x)), Args: []Value{x}, Imms: []int{count}})
}

// Array appends an array of the given elements. The array must not be empty.
func (b *Builder) Array(elems []Value) Value {
	if !b.check(OpArray, elems...) {
		return NoValue
	}
	if len(elems) == 0 {
		return b.fail(OpArray, "empty array")
	}
	return b.emit(&Inst{Op: OpArray, Type: ArrayType(len(elems), b.typeOf(elems[0])), Args: clone(elems)})
}

// Struct appends a struct of the given fields.
func (b *Builder) Struct(fields []Value) Value {
	if !b.check(OpStruct, fields...) {
		return NoValue
	}
	types := make([]*Type, len(fields))
	for i, f := range fields {
		types[i] = b.typeOf(f)
	}
	return b.emit(&Inst{Op: OpStruct, Type: StructType(types...), Args: clone(fields)})
}

// ExtField extracts field or element index of x.
func (b *Builder) ExtField(x Value, index int) Value {
	if !b.check(OpExtField, x) {
		return NoValue
	}
	t, err := fieldType(b.typeOf(x), index)
	if err != nil {
		return b.fail(OpExtField, "%v", err)
	}
	return b.emit(&Inst{Op: OpExtField, Type: t, Args: []Value{x}, Imms: []int{index}})
}

// ExtSlice extracts length bits or elements of x starting at offset.
func (b *Builder) ExtSlice(x Value, offset, length int) Value {
	if !b.check(OpExtSlice, x) {
		return NoValue
	}
	t, err := sliceType(b.typeOf(x), offset, length)
	if err != nil {
		return b.fail(OpExtSlice, "%v", err)
	}
	return b.emit(&Inst{Op: OpExtSlice, Type: t, Args: []Value{x}, Imms: []int{offset, length}})
}

// InsField replaces field index of target with value.
func (b *Builder) InsField(target, value Value, index int) Value {
	if !b.check(OpInsField, target, value) {
		return NoValue
	}
	if _, err := fieldType(b.typeOf(target), index); err != nil {
		return b.fail(OpInsField, "%v", err)
	}
	return b.emit(&Inst{Op: OpInsField, Type: b.typeOf(target), Args: []Value{target, value}, Imms: []int{index}})
}

// InsSlice replaces a slice of target with value.
func (b *Builder) InsSlice(target, value Value, offset, length int) Value {
	if !b.check(OpInsSlice, target, value) {
		return NoValue
	}
	if _, err := sliceType(b.typeOf(target), offset, length); err != nil {
		return b.fail(OpInsSlice, "%v", err)
	}
	return b.emit(&Inst{Op: OpInsSlice, Type: b.typeOf(target), Args: []Value{target, value}, Imms: []int{offset, length}})
}

// Con connects two signals.
func (b *Builder) Con(x, y Value) Value { return b.Binary(OpCon, x, y) }

// Del drives target with source delayed by delay.
func (b *Builder) Del(target, source, delay Value) Value {
	return b.Ternary(OpDel, target, source, delay)
}

// Call appends a call of the external function ext.
func (b *Builder) Call(ext ExtUnit, args []Value) Value {
	if !b.check(OpCall, args...) {
		return NoValue
	}
	ret := ext.Sig.Return
	if ret == nil {
		ret = VoidType
	}
	return b.emit(&Inst{Op: OpCall, Type: ret, Args: clone(args), Ext: ext})
}

// Inst instantiates ext with the given input and output signals.
func (b *Builder) Inst(ext ExtUnit, inputs, outputs []Value) Value {
	if !b.check(OpInst, inputs...) || !b.check(OpInst, outputs...) {
		return NoValue
	}
	args := append(clone(inputs), outputs...)
	return b.emit(&Inst{Op: OpInst, Args: args, Ins: len(inputs), Ext: ext})
}

// Sig creates a signal initialised with init.
func (b *Builder) Sig(init Value) Value { return b.Unary(OpSig, init) }

// Prb probes the current value of a signal.
func (b *Builder) Prb(signal Value) Value { return b.Unary(OpPrb, signal) }

// Drv drives signal with value after delay.
func (b *Builder) Drv(signal, value, delay Value) Value {
	return b.Ternary(OpDrv, signal, value, delay)
}

// DrvCond drives signal with value after delay when cond holds.
func (b *Builder) DrvCond(signal, value, delay, cond Value) Value {
	if !b.check(OpDrvCond, signal, value, delay, cond) {
		return NoValue
	}
	return b.emit(&Inst{Op: OpDrvCond, Args: []Value{signal, value, delay, cond}})
}

// Var allocates a variable initialised with init.
func (b *Builder) Var(init Value) Value { return b.Unary(OpVar, init) }

// Ld loads through a pointer.
func (b *Builder) Ld(ptr Value) Value { return b.Unary(OpLd, ptr) }

// St stores value through ptr.
func (b *Builder) St(ptr, value Value) Value { return b.Binary(OpSt, ptr, value) }

// Halt terminates a process.
func (b *Builder) Halt() Value { return b.Nullary(OpHalt) }

// Ret returns from a function or process.
func (b *Builder) Ret() Value { return b.Nullary(OpRet) }

// RetValue returns x from a function.
func (b *Builder) RetValue(x Value) Value { return b.Unary(OpRetValue, x) }

// Phi selects among values by predecessor block.
func (b *Builder) Phi(values []Value, blocks []BlockID) Value {
	if !b.check(OpPhi, values...) || !b.checkBlocks(OpPhi, blocks...) {
		return NoValue
	}
	if len(values) == 0 || len(values) != len(blocks) {
		return b.fail(OpPhi, "%d values for %d blocks", len(values), len(blocks))
	}
	return b.emit(&Inst{Op: OpPhi, Type: b.typeOf(values[0]), Args: clone(values), Blocks: clone(blocks)})
}

// Br branches unconditionally.
func (b *Builder) Br(target BlockID) Value {
	if b.err != nil || !b.checkBlocks(OpBr, target) {
		return NoValue
	}
	return b.emit(&Inst{Op: OpBr, Blocks: []BlockID{target}})
}

// BrCond branches to ifTrue when cond is set, ifFalse otherwise.
func (b *Builder) BrCond(cond Value, ifFalse, ifTrue BlockID) Value {
	if !b.check(OpBrCond, cond) || !b.checkBlocks(OpBrCond, ifFalse, ifTrue) {
		return NoValue
	}
	return b.emit(&Inst{Op: OpBrCond, Args: []Value{cond}, Blocks: []BlockID{ifFalse, ifTrue}})
}

// Wait suspends until one of signals changes, then resumes at target.
func (b *Builder) Wait(target BlockID, signals []Value) Value {
	if !b.check(OpWait, signals...) || !b.checkBlocks(OpWait, target) {
		return NoValue
	}
	return b.emit(&Inst{Op: OpWait, Args: clone(signals), Blocks: []BlockID{target}})
}

// WaitTime is Wait with an additional timeout.
func (b *Builder) WaitTime(target BlockID, timeout Value, signals []Value) Value {
	if !b.check(OpWaitTime, timeout) || !b.check(OpWaitTime, signals...) || !b.checkBlocks(OpWaitTime, target) {
		return NoValue
	}
	args := append([]Value{timeout}, signals...)
	return b.emit(&Inst{Op: OpWaitTime, Args: args, Blocks: []BlockID{target}})
}

func fieldType(t *Type, index int) (*Type, error) {
	switch t.Kind {
	case StructKind:
		if index < 0 || index >= len(t.Fields) {
			return nil, fmt.Errorf("field %d out of range for %s", index, t)
		}
		return t.Fields[index], nil
	case ArrayKind:
		if index < 0 || index >= t.Len {
			return nil, fmt.Errorf("element %d out of range for %s", index, t)
		}
		return t.Elem, nil
	case SignalKind, PointerKind:
		inner, err := fieldType(t.Elem, index)
		if err != nil {
			return nil, err
		}
		if t.Kind == SignalKind {
			return SignalType(inner), nil
		}
		return PointerType(inner), nil
	}
	return nil, fmt.Errorf("cannot index %s", t)
}

func sliceType(t *Type, offset, length int) (*Type, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("negative slice bounds %d/%d", offset, length)
	}
	switch t.Kind {
	case IntKind:
		if offset+length > t.Width {
			return nil, fmt.Errorf("slice %d+%d out of range for %s", offset, length, t)
		}
		return IntType(length), nil
	case ArrayKind:
		if offset+length > t.Len {
			return nil, fmt.Errorf("slice %d+%d out of range for %s", offset, length, t)
		}
		return ArrayType(length, t.Elem), nil
	case SignalKind, PointerKind:
		inner, err := sliceType(t.Elem, offset, length)
		if err != nil {
			return nil, err
		}
		if t.Kind == SignalKind {
			return SignalType(inner), nil
		}
		return PointerType(inner), nil
	}
	return nil, fmt.Errorf("cannot slice %s", t)
}

func clone[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
