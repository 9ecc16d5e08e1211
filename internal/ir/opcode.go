package ir

import "fmt"

// Opcode identifies the kind of an instruction.
type Opcode uint8

// Opcodes in catalog order. The order is part of the on-disk contract of
// content hashes; append new opcodes at the end.
const (
	OpInvalid Opcode = iota

	OpConstInt
	OpConstTime
	OpAlias
	OpArrayUniform
	OpArray
	OpStruct

	OpNot
	OpNeg

	OpAdd
	OpSub
	OpAnd
	OpOr
	OpXor
	OpSmul
	OpSdiv
	OpSmod
	OpSrem
	OpUmul
	OpUdiv
	OpUmod
	OpUrem

	OpEq
	OpNeq
	OpSlt
	OpSgt
	OpSle
	OpSge
	OpUlt
	OpUgt
	OpUle
	OpUge

	OpShl
	OpShr
	OpMux
	OpReg
	OpInsField
	OpInsSlice
	OpExtField
	OpExtSlice
	OpCon
	OpDel

	OpCall
	OpInst
	OpSig
	OpPrb
	OpDrv
	OpDrvCond
	OpVar
	OpLd
	OpSt

	OpHalt
	OpRet
	OpRetValue
	OpPhi
	OpBr
	OpBrCond
	OpWait
	OpWaitTime

	opcodeCount
)

// Shape is the operand layout of an opcode. Regular shapes take only value
// operands; irregular shapes mix values with scalar fields or vectors.
type Shape uint8

const (
	ShapeInvalid Shape = iota
	ShapeNullary
	ShapeUnary
	ShapeBinary
	ShapeTernary
	ShapeConstInt     // int immediate
	ShapeConstTime    // time immediate
	ShapeShift        // base, hidden, amount
	ShapeDrvCond      // signal, value, delay, condition
	ShapeExtField     // value, index
	ShapeExtSlice     // value, offset, length
	ShapeInsField     // target, value, index
	ShapeInsSlice     // target, value, offset, length
	ShapeArrayUniform // value, count
	ShapeAggregate    // [values]
	ShapeCall         // callee, [args]
	ShapeInst         // callee, [inputs], [outputs]
	ShapeReg          // signal, value, mode, trigger
	ShapeBranch       // block
	ShapeCondBranch   // condition, false block, true block
	ShapeWait         // block, [signals]
	ShapeWaitTime     // block, time, [signals]
	ShapePhi          // [values], [blocks]
)

var shapeNames = [...]string{
	ShapeInvalid:      "invalid",
	ShapeNullary:      "nullary",
	ShapeUnary:        "unary",
	ShapeBinary:       "binary",
	ShapeTernary:      "ternary",
	ShapeConstInt:     "const-int",
	ShapeConstTime:    "const-time",
	ShapeShift:        "shift",
	ShapeDrvCond:      "drv-cond",
	ShapeExtField:     "ext-field",
	ShapeExtSlice:     "ext-slice",
	ShapeInsField:     "ins-field",
	ShapeInsSlice:     "ins-slice",
	ShapeArrayUniform: "array-uniform",
	ShapeAggregate:    "aggregate",
	ShapeCall:         "call",
	ShapeInst:         "inst",
	ShapeReg:          "reg",
	ShapeBranch:       "branch",
	ShapeCondBranch:   "cond-branch",
	ShapeWait:         "wait",
	ShapeWaitTime:     "wait-time",
	ShapePhi:          "phi",
}

func (s Shape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("shape(%d)", uint8(s))
}

// Regular reports whether the shape consists of value operands only.
func (s Shape) Regular() bool {
	switch s {
	case ShapeNullary, ShapeUnary, ShapeBinary, ShapeTernary:
		return true
	}
	return false
}

// opInfo is the static catalog entry of an opcode.
//
// Mnemonic is the canonical textual name. Several opcodes share a mnemonic
// (e.g. both constant kinds print as "const"); Suffix tells them apart when
// a unique name is required.
type opInfo struct {
	Mnemonic string
	Suffix   string
	Shape    Shape
	Result   bool // instruction defines a value
}

var opTable = [opcodeCount]opInfo{
	OpInvalid: {"invalid", "", ShapeInvalid, false},

	OpConstInt:     {"const", "Int", ShapeConstInt, true},
	OpConstTime:    {"const", "Time", ShapeConstTime, true},
	OpAlias:        {"alias", "", ShapeUnary, true},
	OpArrayUniform: {"array_uniform", "", ShapeArrayUniform, true},
	OpArray:        {"array", "", ShapeAggregate, true},
	OpStruct:       {"struct", "", ShapeAggregate, true},

	OpNot: {"not", "", ShapeUnary, true},
	OpNeg: {"neg", "", ShapeUnary, true},

	OpAdd:  {"add", "", ShapeBinary, true},
	OpSub:  {"sub", "", ShapeBinary, true},
	OpAnd:  {"and", "", ShapeBinary, true},
	OpOr:   {"or", "", ShapeBinary, true},
	OpXor:  {"xor", "", ShapeBinary, true},
	OpSmul: {"smul", "", ShapeBinary, true},
	OpSdiv: {"sdiv", "", ShapeBinary, true},
	OpSmod: {"smod", "", ShapeBinary, true},
	OpSrem: {"srem", "", ShapeBinary, true},
	OpUmul: {"umul", "", ShapeBinary, true},
	OpUdiv: {"udiv", "", ShapeBinary, true},
	OpUmod: {"umod", "", ShapeBinary, true},
	OpUrem: {"urem", "", ShapeBinary, true},

	OpEq:  {"eq", "", ShapeBinary, true},
	OpNeq: {"neq", "", ShapeBinary, true},
	OpSlt: {"slt", "", ShapeBinary, true},
	OpSgt: {"sgt", "", ShapeBinary, true},
	OpSle: {"sle", "", ShapeBinary, true},
	OpSge: {"sge", "", ShapeBinary, true},
	OpUlt: {"ult", "", ShapeBinary, true},
	OpUgt: {"ugt", "", ShapeBinary, true},
	OpUle: {"ule", "", ShapeBinary, true},
	OpUge: {"uge", "", ShapeBinary, true},

	OpShl:      {"shl", "", ShapeShift, true},
	OpShr:      {"shr", "", ShapeShift, true},
	OpMux:      {"mux", "", ShapeBinary, true},
	OpReg:      {"reg", "", ShapeReg, false},
	OpInsField: {"ins_field", "", ShapeInsField, true},
	OpInsSlice: {"ins_slice", "", ShapeInsSlice, true},
	OpExtField: {"ext_field", "", ShapeExtField, true},
	OpExtSlice: {"ext_slice", "", ShapeExtSlice, true},
	OpCon:      {"con", "", ShapeBinary, false},
	OpDel:      {"del", "", ShapeTernary, false},

	OpCall:    {"call", "", ShapeCall, true},
	OpInst:    {"inst", "", ShapeInst, false},
	OpSig:     {"sig", "", ShapeUnary, true},
	OpPrb:     {"prb", "", ShapeUnary, true},
	OpDrv:     {"drv", "", ShapeTernary, false},
	OpDrvCond: {"drv", "Cond", ShapeDrvCond, false},
	OpVar:     {"var", "", ShapeUnary, true},
	OpLd:      {"ld", "", ShapeUnary, true},
	OpSt:      {"st", "", ShapeBinary, false},

	OpHalt:     {"halt", "", ShapeNullary, false},
	OpRet:      {"ret", "", ShapeNullary, false},
	OpRetValue: {"ret", "Value", ShapeUnary, false},
	OpPhi:      {"phi", "", ShapePhi, true},
	OpBr:       {"br", "", ShapeBranch, false},
	OpBrCond:   {"br", "Cond", ShapeCondBranch, false},
	OpWait:     {"wait", "", ShapeWait, false},
	OpWaitTime: {"wait", "Time", ShapeWaitTime, false},
}

// Opcodes returns every valid opcode in catalog order.
func Opcodes() []Opcode {
	ops := make([]Opcode, 0, opcodeCount-1)
	for op := OpInvalid + 1; op < opcodeCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

// Valid reports whether op is a catalog opcode.
func (op Opcode) Valid() bool {
	return op > OpInvalid && op < opcodeCount
}

// Mnemonic returns the canonical textual name of the opcode.
func (op Opcode) Mnemonic() string {
	if op >= opcodeCount {
		return "invalid"
	}
	return opTable[op].Mnemonic
}

// Suffix returns the disambiguating suffix for opcodes sharing a mnemonic.
func (op Opcode) Suffix() string {
	if op >= opcodeCount {
		return ""
	}
	return opTable[op].Suffix
}

// Shape returns the operand layout of the opcode.
func (op Opcode) Shape() Shape {
	if op >= opcodeCount {
		return ShapeInvalid
	}
	return opTable[op].Shape
}

// HasResult reports whether instructions of this opcode define a value.
func (op Opcode) HasResult() bool {
	if op >= opcodeCount {
		return false
	}
	return opTable[op].Result
}

// IsTerminator reports whether the opcode ends a block.
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpHalt, OpRet, OpRetValue, OpBr, OpBrCond, OpWait, OpWaitTime:
		return true
	}
	return false
}

// IsComparison reports whether the opcode yields an i1 comparison result.
func (op Opcode) IsComparison() bool {
	return op >= OpEq && op <= OpUge
}

func (op Opcode) String() string {
	if !op.Valid() {
		return fmt.Sprintf("op(%d)", uint8(op))
	}
	if op.Suffix() != "" {
		return op.Mnemonic() + "." + op.Suffix()
	}
	return op.Mnemonic()
}

// ParseOpcode resolves a textual opcode as printed by Opcode.String.
func ParseOpcode(s string) (Opcode, error) {
	for op := OpInvalid + 1; op < opcodeCount; op++ {
		if op.String() == s {
			return op, nil
		}
	}
	return OpInvalid, fmt.Errorf("unknown opcode %q", s)
}
