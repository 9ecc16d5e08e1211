package codec

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/eqhdl/eqhdl/internal/ir"
	"github.com/eqhdl/eqhdl/internal/program"
	"github.com/eqhdl/eqhdl/internal/schema"
	"github.com/eqhdl/eqhdl/internal/term"
)

// Encoder lifts IR units into terms of one schema. An Encoder holds no
// mutable state and is safe for concurrent use.
type Encoder struct {
	schema  *schema.Schema
	workers int
}

// EncoderOption configures an Encoder.
type EncoderOption func(*Encoder)

// WithWorkers bounds the goroutines EncodeAll fans out to.
//
// Default: runtime.GOMAXPROCS(0)
func WithWorkers(n int) EncoderOption {
	return func(e *Encoder) {
		e.workers = n
	}
}

// NewEncoder creates an encoder for the given schema.
func NewEncoder(s *schema.Schema, opts ...EncoderOption) *Encoder {
	e := &Encoder{schema: s, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e
}

// Encode encodes the operand tree of the unit's last instruction. It returns
// the binder name and the Root-wrapped term.
func (e *Encoder) Encode(u *ir.Unit) (string, term.Term, error) {
	if len(u.Insts) == 0 {
		return "", nil, newError(ErrCodeEmptyUnit, u.Name, nil, "nothing to encode")
	}
	return e.EncodeRoot(u, u.Root())
}

// EncodeRoot encodes the operand tree of root, which must belong to u.
func (e *Encoder) EncodeRoot(u *ir.Unit, root *ir.Inst) (string, term.Term, error) {
	if len(u.Insts) == 0 || root == nil {
		return "", nil, newError(ErrCodeEmptyUnit, u.Name, nil, "nothing to encode")
	}
	w := &unitEncoder{reg: e.schema.Registry(), unit: u, memo: map[ir.Value]term.Term{}}
	body, err := w.inst(root)
	if err != nil {
		return "", nil, err
	}
	t := term.New(schema.SymRoot, body)
	if err := e.schema.Check(t); err != nil {
		return "", nil, newError(ErrCodeMalformedTerm, u.Name, err, "encoded term does not fit the schema")
	}
	return Binder(u.Name), t, nil
}

// Fact encodes u as a let binding.
func (e *Encoder) Fact(u *ir.Unit) (program.Let, error) {
	name, t, err := e.Encode(u)
	if err != nil {
		return program.Let{}, err
	}
	return program.Let{Name: name, Term: t}, nil
}

// Result is the outcome of encoding one unit of a batch.
type Result struct {
	Unit   *ir.Unit
	Binder string
	Term   term.Term
	Err    error
}

// EncodeAll encodes units on a bounded worker pool. Failures are reported
// per unit; one bad unit does not stop the others. Results keep the input
// order.
func (e *Encoder) EncodeAll(ctx context.Context, units []*ir.Unit) []Result {
	results := make([]Result, len(units))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(e.workers, len(units)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				u := units[i]
				results[i].Unit = u
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i].Binder, results[i].Term, results[i].Err = e.Encode(u)
			}
		}()
	}
	for i := range units {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			slog.Debug("unit not encoded", "unit", r.Unit.Name, "error", r.Err)
		}
	}
	slog.Info("units encoded",
		"units", len(units),
		"failed", failed,
		"workers", min(e.workers, len(units)),
	)
	return results
}

type unitEncoder struct {
	reg  *schema.Registry
	unit *ir.Unit
	memo map[ir.Value]term.Term
}

// value encodes the tree producing v. Values without a producing
// instruction are unit arguments and become Ref leaves.
func (w *unitEncoder) value(v ir.Value) (term.Term, error) {
	if t, ok := w.memo[v]; ok {
		return t, nil
	}
	if w.unit.IsArg(v) {
		return term.Ref(uint32(v)), nil
	}
	def := w.unit.Def(v)
	if def == nil {
		return nil, newError(ErrCodeUnknownValue, w.unit.Name, nil, "value %%%d has no definition", v)
	}
	t, err := w.inst(def)
	if err != nil {
		return nil, err
	}
	w.memo[v] = t
	return t, nil
}

func (w *unitEncoder) values(vs []ir.Value) ([]term.Term, error) {
	out := make([]term.Term, len(vs))
	for i, v := range vs {
		t, err := w.value(v)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (w *unitEncoder) inst(in *ir.Inst) (term.Term, error) {
	sym, err := w.reg.SymbolOf(in.Op)
	if err != nil {
		return nil, newError(ErrCodeUnknownOperation, w.unit.Name, err, "cannot encode %s", in.Op)
	}
	return w.build(sym, in.Op.Shape(), in)
}

// build encodes in under the layout of shape. Every shape is listed; there
// is no fallback.
func (w *unitEncoder) build(sym string, shape ir.Shape, in *ir.Inst) (term.Term, error) {
	nargs, nimms, nblocks := -1, 0, 0
	switch shape {
	case ir.ShapeNullary, ir.ShapeConstInt, ir.ShapeConstTime:
		nargs = 0
	case ir.ShapeUnary, ir.ShapeExtField, ir.ShapeArrayUniform, ir.ShapeExtSlice:
		nargs = 1
	case ir.ShapeBinary, ir.ShapeInsField, ir.ShapeInsSlice:
		nargs = 2
	case ir.ShapeTernary, ir.ShapeShift, ir.ShapeReg:
		nargs = 3
	case ir.ShapeDrvCond:
		nargs = 4
	case ir.ShapeBranch:
		nargs, nblocks = 0, 1
	case ir.ShapeCondBranch:
		nargs, nblocks = 1, 2
	case ir.ShapeWait, ir.ShapeWaitTime:
		nblocks = 1
	case ir.ShapeAggregate, ir.ShapeCall, ir.ShapeInst, ir.ShapePhi:
	default:
		return nil, newError(ErrCodeUnsupportedShape, w.unit.Name, nil, "%s has shape %s", sym, shape)
	}
	switch shape {
	case ir.ShapeExtField, ir.ShapeArrayUniform, ir.ShapeInsField:
		nimms = 1
	case ir.ShapeExtSlice, ir.ShapeInsSlice:
		nimms = 2
	}
	if (nargs >= 0 && len(in.Args) != nargs) || len(in.Imms) != nimms || (nblocks > 0 && len(in.Blocks) != nblocks) {
		return nil, newError(ErrCodeUnsupportedShape, w.unit.Name, nil,
			"%s: %d operands, %d fields, %d blocks do not fit shape %s", sym, len(in.Args), len(in.Imms), len(in.Blocks), shape)
	}

	args, err := w.values(in.Args)
	if err != nil {
		return nil, err
	}
	imm := func(i int) term.Term { return term.I64(in.Imms[i]) }
	block := func(i int) term.Term { return term.New(schema.SymBlock, term.I64(in.Blocks[i])) }
	vec := func(ts []term.Term) term.Term { return term.New(schema.SymVecExpr, ts...) }
	payload := func(p string, err error) (term.Term, error) {
		if err != nil {
			return nil, newError(ErrCodeMalformedTerm, w.unit.Name, err, "%s immediate", sym)
		}
		return term.Str(p), nil
	}

	switch shape {
	case ir.ShapeNullary, ir.ShapeUnary, ir.ShapeBinary, ir.ShapeTernary, ir.ShapeShift, ir.ShapeDrvCond:
		return term.New(sym, args...), nil

	case ir.ShapeConstInt:
		p, err := payload(ir.IntPayload(in.Int))
		if err != nil {
			return nil, err
		}
		return term.New(sym, p), nil

	case ir.ShapeConstTime:
		p, err := payload(ir.TimePayload(in.Time))
		if err != nil {
			return nil, err
		}
		return term.New(sym, p), nil

	case ir.ShapeExtField, ir.ShapeArrayUniform:
		return term.New(sym, args[0], imm(0)), nil

	case ir.ShapeExtSlice:
		return term.New(sym, args[0], imm(0), imm(1)), nil

	case ir.ShapeInsField:
		return term.New(sym, args[0], args[1], imm(0)), nil

	case ir.ShapeInsSlice:
		return term.New(sym, args[0], args[1], imm(0), imm(1)), nil

	case ir.ShapeAggregate:
		return term.New(sym, vec(args)), nil

	case ir.ShapeCall:
		p, err := payload(ir.ExtPayload(in.Ext))
		if err != nil {
			return nil, err
		}
		return term.New(sym, p, vec(args)), nil

	case ir.ShapeInst:
		if in.Ins < 0 || in.Ins > len(args) {
			return nil, newError(ErrCodeUnsupportedShape, w.unit.Name, nil, "%s: %d inputs of %d operands", sym, in.Ins, len(args))
		}
		p, err := payload(ir.ExtPayload(in.Ext))
		if err != nil {
			return nil, err
		}
		return term.New(sym, p, vec(args[:in.Ins]), vec(args[in.Ins:])), nil

	case ir.ShapeReg:
		mode := term.New(schema.TriggerSymbol(in.Mode))
		return term.New(sym, args[0], args[1], mode, args[2]), nil

	case ir.ShapeBranch:
		return term.New(sym, block(0)), nil

	case ir.ShapeCondBranch:
		return term.New(sym, args[0], block(0), block(1)), nil

	case ir.ShapeWait:
		return term.New(sym, block(0), vec(args)), nil

	case ir.ShapeWaitTime:
		if len(args) == 0 {
			return nil, newError(ErrCodeUnsupportedShape, w.unit.Name, nil, "%s without a timeout", sym)
		}
		return term.New(sym, block(0), args[0], vec(args[1:])), nil

	case ir.ShapePhi:
		if len(in.Blocks) != len(args) {
			return nil, newError(ErrCodeUnsupportedShape, w.unit.Name, nil, "%s: %d values for %d blocks", sym, len(args), len(in.Blocks))
		}
		blocks := make([]term.Term, len(in.Blocks))
		for i := range in.Blocks {
			blocks[i] = block(i)
		}
		return term.New(sym, vec(args), term.New(schema.SymVecBlock, blocks...)), nil
	}
	return nil, newError(ErrCodeUnsupportedShape, w.unit.Name, nil, "%s has shape %s", sym, shape)
}
