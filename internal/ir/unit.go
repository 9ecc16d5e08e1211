package ir

import "fmt"

// UnitKind distinguishes the three unit flavours.
type UnitKind uint8

const (
	Entity UnitKind = iota
	Process
	Function
)

func (k UnitKind) String() string {
	switch k {
	case Entity:
		return "entity"
	case Process:
		return "proc"
	case Function:
		return "func"
	}
	return fmt.Sprintf("unit(%d)", uint8(k))
}

// ParseUnitKind resolves the textual kind produced by UnitKind.String.
func ParseUnitKind(s string) (UnitKind, error) {
	switch s {
	case "entity":
		return Entity, nil
	case "proc", "process":
		return Process, nil
	case "func", "function":
		return Function, nil
	}
	return Entity, fmt.Errorf("unknown unit kind %q", s)
}

// Signature lists a unit's input and output argument types. Functions also
// carry a return type; entities and processes return void.
type Signature struct {
	Inputs  []*Type
	Outputs []*Type
	Return  *Type
}

// NumArgs is the number of argument values the signature introduces.
func (s Signature) NumArgs() int { return len(s.Inputs) + len(s.Outputs) }

// ArgType returns the type of argument i (inputs first, then outputs).
func (s Signature) ArgType(i int) *Type {
	if i < len(s.Inputs) {
		return s.Inputs[i]
	}
	return s.Outputs[i-len(s.Inputs)]
}

// Equal compares two signatures structurally.
func (s Signature) Equal(o Signature) bool {
	if len(s.Inputs) != len(o.Inputs) || len(s.Outputs) != len(o.Outputs) {
		return false
	}
	for i := range s.Inputs {
		if !s.Inputs[i].Equal(o.Inputs[i]) {
			return false
		}
	}
	for i := range s.Outputs {
		if !s.Outputs[i].Equal(o.Outputs[i]) {
			return false
		}
	}
	return s.Return.Equal(o.Return)
}

// Value names an argument or instruction result within one unit.
type Value int

// NoValue marks an instruction without a result.
const NoValue Value = -1

// BlockID indexes Unit.Blocks.
type BlockID int

// TriggerMode selects the edge or level a register reacts to.
type TriggerMode uint8

const (
	TriggerLow TriggerMode = iota
	TriggerHigh
	TriggerRise
	TriggerFall
	TriggerBoth
)

var triggerNames = [...]string{"low", "high", "rise", "fall", "both"}

func (m TriggerMode) String() string {
	if int(m) < len(triggerNames) {
		return triggerNames[m]
	}
	return fmt.Sprintf("trigger(%d)", uint8(m))
}

// TriggerModes returns all trigger modes in declaration order.
func TriggerModes() []TriggerMode {
	return []TriggerMode{TriggerLow, TriggerHigh, TriggerRise, TriggerFall, TriggerBoth}
}

// Inst is one instruction. Which fields are meaningful depends on the
// opcode's shape:
//
//	Args    value operands in shape order (inst: inputs then outputs)
//	Imms    scalar fields (index, offset/length, count)
//	Blocks  branch, wait and phi targets
//	Int, Time, Ext  immediates of const, call and inst
type Inst struct {
	Op     Opcode
	Result Value
	Type   *Type
	Args   []Value
	Imms   []int
	Blocks []BlockID
	Mode   TriggerMode
	Ins    int // number of inputs among Args, OpInst only

	Int  IntValue
	Time TimeValue
	Ext  ExtUnit

	Block BlockID
}

// Block is a named basic block. Entities have a single implicit block.
type Block struct {
	Name string
}

// Unit is a named, ordered instruction sequence. Instructions are only ever
// appended; see Builder.
type Unit struct {
	Kind   UnitKind
	Name   string
	Sig    Signature
	Blocks []Block
	Insts  []*Inst

	types []*Type // indexed by Value
	defs  []int   // instruction index per Value, -1 for arguments
}

// NewUnit creates an empty unit whose argument values are 0..n-1.
func NewUnit(kind UnitKind, name string, sig Signature) *Unit {
	if sig.Return == nil {
		sig.Return = VoidType
	}
	u := &Unit{Kind: kind, Name: name, Sig: sig}
	for i := 0; i < sig.NumArgs(); i++ {
		u.types = append(u.types, sig.ArgType(i))
		u.defs = append(u.defs, -1)
	}
	return u
}

// NumValues is the number of values defined so far, arguments included.
func (u *Unit) NumValues() int { return len(u.types) }

// IsArg reports whether v is one of the unit's arguments.
func (u *Unit) IsArg(v Value) bool { return v >= 0 && int(v) < u.Sig.NumArgs() }

// Defined reports whether v names a value of this unit.
func (u *Unit) Defined(v Value) bool { return v >= 0 && int(v) < len(u.types) }

// TypeOf returns the type of v, or nil when v is undefined.
func (u *Unit) TypeOf(v Value) *Type {
	if !u.Defined(v) {
		return nil
	}
	return u.types[v]
}

// Def returns the instruction producing v, or nil for arguments and
// undefined values.
func (u *Unit) Def(v Value) *Inst {
	if !u.Defined(v) || u.defs[v] < 0 {
		return nil
	}
	return u.Insts[u.defs[v]]
}

// Root is the last instruction, or nil for an empty unit.
func (u *Unit) Root() *Inst {
	if len(u.Insts) == 0 {
		return nil
	}
	return u.Insts[len(u.Insts)-1]
}

func (u *Unit) appendInst(inst *Inst) Value {
	inst.Result = NoValue
	if inst.Op.HasResult() {
		inst.Result = Value(len(u.types))
		u.types = append(u.types, inst.Type)
		u.defs = append(u.defs, len(u.Insts))
	}
	u.Insts = append(u.Insts, inst)
	return inst.Result
}
