// Package schema names IR opcodes as term constructors and declares the
// term algebra they live in.
//
// A Registry maps each registered opcode to exactly one symbol and back.
// Build turns a registry into a Schema: one constructor per registered
// opcode, whose child sorts follow the opcode's shape, plus the auxiliary
// sorts and constructors (vectors, block references, trigger modes and the
// Root wrapper) that encoded units need.
package schema

import (
	"fmt"
	"strings"

	"github.com/eqhdl/eqhdl/internal/ir"
	"github.com/eqhdl/eqhdl/internal/program"
	"github.com/eqhdl/eqhdl/internal/term"
)

// Auxiliary sorts.
const (
	SortVecExpr     term.Sort = "VecExpr"
	SortVecBlock    term.Sort = "VecBlock"
	SortBlockRef    term.Sort = "BlockRef"
	SortTriggerMode term.Sort = "TriggerMode"
	SortTop         term.Sort = "Top"
)

// Auxiliary constructor symbols.
const (
	SymRoot     = "Root"
	SymBlock    = "Block"
	SymVecExpr  = string(SortVecExpr)
	SymVecBlock = string(SortVecBlock)
)

var triggerSymbols = [...]string{
	ir.TriggerLow:  "Low",
	ir.TriggerHigh: "High",
	ir.TriggerRise: "Rise",
	ir.TriggerFall: "Fall",
	ir.TriggerBoth: "Both",
}

// TriggerSymbol returns the constructor naming a trigger mode.
func TriggerSymbol(m ir.TriggerMode) string {
	if int(m) < len(triggerSymbols) {
		return triggerSymbols[m]
	}
	return ""
}

// TriggerOf resolves a trigger-mode constructor.
func TriggerOf(sym string) (ir.TriggerMode, bool) {
	for i, s := range triggerSymbols {
		if s == sym {
			return ir.TriggerMode(i), true
		}
	}
	return 0, false
}

func isAuxiliary(name string) bool {
	switch name {
	case SymRoot, SymBlock, SymVecExpr, SymVecBlock,
		string(SortTriggerMode), string(SortBlockRef), string(SortTop), string(term.SortExpr):
		return true
	}
	_, ok := TriggerOf(name)
	return ok
}

// ChildSorts returns the child sort list of a constructor for shape. Every
// shape is enumerated; an unknown shape fails with UnsupportedShape.
func ChildSorts(shape ir.Shape) ([]term.Sort, error) {
	e, i, s := term.SortExpr, term.SortI64, term.SortString
	switch shape {
	case ir.ShapeNullary:
		return nil, nil
	case ir.ShapeUnary:
		return []term.Sort{e}, nil
	case ir.ShapeBinary:
		return []term.Sort{e, e}, nil
	case ir.ShapeTernary, ir.ShapeShift:
		return []term.Sort{e, e, e}, nil
	case ir.ShapeDrvCond:
		return []term.Sort{e, e, e, e}, nil
	case ir.ShapeConstInt, ir.ShapeConstTime:
		return []term.Sort{s}, nil
	case ir.ShapeExtField, ir.ShapeArrayUniform:
		return []term.Sort{e, i}, nil
	case ir.ShapeExtSlice:
		return []term.Sort{e, i, i}, nil
	case ir.ShapeInsField:
		return []term.Sort{e, e, i}, nil
	case ir.ShapeInsSlice:
		return []term.Sort{e, e, i, i}, nil
	case ir.ShapeAggregate:
		return []term.Sort{SortVecExpr}, nil
	case ir.ShapeCall:
		return []term.Sort{s, SortVecExpr}, nil
	case ir.ShapeInst:
		return []term.Sort{s, SortVecExpr, SortVecExpr}, nil
	case ir.ShapeReg:
		return []term.Sort{e, e, SortTriggerMode, e}, nil
	case ir.ShapeBranch:
		return []term.Sort{SortBlockRef}, nil
	case ir.ShapeCondBranch:
		return []term.Sort{e, SortBlockRef, SortBlockRef}, nil
	case ir.ShapeWait:
		return []term.Sort{SortBlockRef, SortVecExpr}, nil
	case ir.ShapeWaitTime:
		return []term.Sort{SortBlockRef, e, SortVecExpr}, nil
	case ir.ShapePhi:
		return []term.Sort{SortVecExpr, SortVecBlock}, nil
	}
	return nil, NewError(ErrUnsupportedShape, "shape %s has no constructor layout", shape)
}

// Schema is the static term algebra for one registry. It implements
// term.Signature.
type Schema struct {
	reg    *Registry
	ctors  map[string]term.Constructor
	opSyms []string
	cmds   []program.Command
}

// Build declares one constructor per registered opcode plus the auxiliary
// declarations.
func Build(reg *Registry) (*Schema, error) {
	s := &Schema{reg: reg, ctors: map[string]term.Constructor{}}

	add := func(c term.Constructor) error {
		if _, dup := s.ctors[c.Name]; dup {
			return NewError(ErrSchemaCollision, "constructor %s declared twice", c.Name)
		}
		s.ctors[c.Name] = c
		return nil
	}

	trig := program.DeclareDatatype{Name: SortTriggerMode}
	for _, sym := range triggerSymbols {
		trig.Variants = append(trig.Variants, program.Variant{Name: sym})
		if err := add(term.Constructor{Name: sym, Sort: SortTriggerMode}); err != nil {
			return nil, err
		}
	}

	block := program.DeclareDatatype{
		Name:     SortBlockRef,
		Variants: []program.Variant{{Name: SymBlock, Args: []term.Sort{term.SortI64}}},
	}
	if err := add(term.Constructor{Name: SymBlock, Sort: SortBlockRef, Args: []term.Sort{term.SortI64}}); err != nil {
		return nil, err
	}

	vecExpr := program.DeclareSort{Name: SortVecExpr, Container: "Vec", Elem: term.SortExpr}
	vecBlock := program.DeclareSort{Name: SortVecBlock, Container: "Vec", Elem: SortBlockRef}
	for _, v := range []program.DeclareSort{vecExpr, vecBlock} {
		if err := add(term.Constructor{Name: string(v.Name), Sort: v.Name, Args: []term.Sort{v.Elem}, Variadic: true}); err != nil {
			return nil, err
		}
	}

	expr := program.DeclareDatatype{Name: term.SortExpr}
	for _, op := range reg.Opcodes() {
		sym, err := reg.SymbolOf(op)
		if err != nil {
			return nil, err
		}
		args, err := ChildSorts(op.Shape())
		if err != nil {
			return nil, fmt.Errorf("opcode %s: %w", op, err)
		}
		if err := add(term.Constructor{Name: sym, Sort: term.SortExpr, Args: args}); err != nil {
			return nil, err
		}
		expr.Variants = append(expr.Variants, program.Variant{Name: sym, Args: args})
		s.opSyms = append(s.opSyms, sym)
	}

	top := program.DeclareDatatype{
		Name:     SortTop,
		Variants: []program.Variant{{Name: SymRoot, Args: []term.Sort{term.SortExpr}}},
	}
	if err := add(term.Constructor{Name: SymRoot, Sort: SortTop, Args: []term.Sort{term.SortExpr}}); err != nil {
		return nil, err
	}

	s.cmds = []program.Command{trig, block, vecExpr, vecBlock, expr, top}
	return s, nil
}

// MustBuild is Build for registries known to be valid.
func MustBuild(reg *Registry) *Schema {
	s, err := Build(reg)
	if err != nil {
		panic(err)
	}
	return s
}

// Registry returns the registry the schema was built from.
func (s *Schema) Registry() *Registry { return s.reg }

// Constructor implements term.Signature.
func (s *Schema) Constructor(sym string) (term.Constructor, bool) {
	c, ok := s.ctors[sym]
	return c, ok
}

// OperationConstructors is the number of constructors standing for opcodes.
// It always equals Registry().Len().
func (s *Schema) OperationConstructors() int { return len(s.opSyms) }

// Constructors returns every constructor, auxiliaries included.
func (s *Schema) Constructors() []term.Constructor {
	out := make([]term.Constructor, 0, len(s.ctors))
	for _, c := range s.cmds {
		switch d := c.(type) {
		case program.DeclareDatatype:
			for _, v := range d.Variants {
				out = append(out, s.ctors[v.Name])
			}
		case program.DeclareSort:
			out = append(out, s.ctors[string(d.Name)])
		}
	}
	return out
}

// Commands returns the schema declarations in dependency order.
func (s *Schema) Commands() []program.Command {
	out := make([]program.Command, len(s.cmds))
	copy(out, s.cmds)
	return out
}

// Program wraps the declarations in a program.
func (s *Schema) Program() program.Program {
	return program.New(s.cmds...)
}

// Check verifies that t is a well-typed Root term.
func (s *Schema) Check(t term.Term) error {
	return term.Check(s, t, SortTop)
}

// String renders the declarations in DSL syntax.
func (s *Schema) String() string {
	var sb strings.Builder
	for _, c := range s.cmds {
		sb.WriteString(c.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
