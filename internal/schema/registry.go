package schema

import (
	"sort"

	"github.com/iancoleman/strcase"

	"github.com/eqhdl/eqhdl/internal/ir"
)

// Registry is the bidirectional naming between registered opcodes and
// term constructor symbols. A Registry is immutable after construction and
// safe for concurrent use.
type Registry struct {
	ops   []ir.Opcode
	sym   map[ir.Opcode]string
	bySym map[string]ir.Opcode
}

// SymbolName applies the naming policy: the opcode's mnemonic converted
// from snake case to camel case, followed by its disambiguating suffix.
//
//	add        -> Add
//	ext_field  -> ExtField
//	const+Int  -> ConstInt
func SymbolName(op ir.Opcode) string {
	return strcase.ToCamel(op.Mnemonic()) + op.Suffix()
}

// NewRegistry registers the given opcodes. Duplicates are ignored. It fails
// with SchemaCollision when two opcodes would share a symbol, or when a
// symbol collides with an auxiliary constructor name.
func NewRegistry(ops []ir.Opcode) (*Registry, error) {
	r := &Registry{
		sym:   make(map[ir.Opcode]string, len(ops)),
		bySym: make(map[string]ir.Opcode, len(ops)),
	}
	for _, op := range ops {
		if !op.Valid() {
			return nil, NewError(ErrUnknownOperation, "cannot register opcode %d", op)
		}
		if _, dup := r.sym[op]; dup {
			continue
		}
		name := SymbolName(op)
		if prev, taken := r.bySym[name]; taken {
			return nil, NewError(ErrSchemaCollision, "opcodes %s and %s both map to symbol %s", prev, op, name)
		}
		if isAuxiliary(name) {
			return nil, NewError(ErrSchemaCollision, "opcode %s maps to reserved symbol %s", op, name)
		}
		r.sym[op] = name
		r.bySym[name] = op
		r.ops = append(r.ops, op)
	}
	sort.Slice(r.ops, func(i, j int) bool { return r.ops[i] < r.ops[j] })
	return r, nil
}

// DefaultRegistry registers every catalog opcode.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(ir.Opcodes())
	if err != nil {
		// The catalog is static; a collision here is a programming error.
		panic(err)
	}
	return r
}

// Len is the number of registered opcodes.
func (r *Registry) Len() int { return len(r.ops) }

// Opcodes returns the registered opcodes in catalog order.
func (r *Registry) Opcodes() []ir.Opcode {
	out := make([]ir.Opcode, len(r.ops))
	copy(out, r.ops)
	return out
}

// Has reports whether op is registered.
func (r *Registry) Has(op ir.Opcode) bool {
	_, ok := r.sym[op]
	return ok
}

// SymbolOf returns the constructor symbol of op.
func (r *Registry) SymbolOf(op ir.Opcode) (string, error) {
	s, ok := r.sym[op]
	if !ok {
		return "", NewError(ErrUnknownOperation, "opcode %s is not registered", op)
	}
	return s, nil
}

// OperationOf returns the opcode named by symbol.
func (r *Registry) OperationOf(symbol string) (ir.Opcode, error) {
	op, ok := r.bySym[symbol]
	if !ok {
		return ir.OpInvalid, NewError(ErrUnknownSymbol, "symbol %q is not registered", symbol)
	}
	return op, nil
}
