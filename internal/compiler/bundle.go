package compiler

import (
	"fmt"
	"os"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/eqhdl/eqhdl/internal/ir"
	"github.com/eqhdl/eqhdl/internal/schema"
)

// Bundle holds everything a set of CUE files describes, in label order.
type Bundle struct {
	Units     []*ir.Unit
	Networks  []*NetworkSpec
	Pipelines []*PipelineSpec
}

// Empty reports whether the bundle describes nothing.
func (b *Bundle) Empty() bool {
	return len(b.Units) == 0 && len(b.Networks) == 0 && len(b.Pipelines) == 0
}

// Unit returns the unit called name, or nil.
func (b *Bundle) Unit(name string) *ir.Unit {
	i := slices.IndexFunc(b.Units, func(u *ir.Unit) bool { return u.Name == name })
	if i < 0 {
		return nil
	}
	return b.Units[i]
}

// Network returns the network called name, or nil.
func (b *Bundle) Network(name string) *NetworkSpec {
	i := slices.IndexFunc(b.Networks, func(n *NetworkSpec) bool { return n.Name == name })
	if i < 0 {
		return nil
	}
	return b.Networks[i]
}

// Pipeline returns the pipeline called name, or nil.
func (b *Bundle) Pipeline(name string) *PipelineSpec {
	i := slices.IndexFunc(b.Pipelines, func(p *PipelineSpec) bool { return p.Name == name })
	if i < 0 {
		return nil
	}
	return b.Pipelines[i]
}

// LoadFiles compiles each CUE file and unifies the results.
func LoadFiles(paths ...string) (cue.Value, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString("{}")
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, fmt.Errorf("read %s: %w", path, err)
		}
		f := ctx.CompileBytes(data, cue.Filename(path))
		if err := f.Err(); err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		v = v.Unify(f)
	}
	// Validate sees conflicts below the root that Err does not.
	if err := v.Validate(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// CompileBundle compiles every unit, network and pipeline under v. It does
// not stop at the first bad definition; each error names the definition it
// belongs to and keeps any CompileError reachable through errors.As.
func CompileBundle(v cue.Value, s *schema.Schema) (*Bundle, []error) {
	b := &Bundle{}
	var errs []error

	each := func(section string, fn func(cue.Value) error) {
		sv := v.LookupPath(cue.ParsePath(section))
		if !sv.Exists() {
			return
		}
		iter, err := sv.Fields()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, formatCUEError(err)))
			return
		}
		for iter.Next() {
			if err := fn(iter.Value()); err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: %w", section, iter.Label(), err))
			}
		}
	}

	each("unit", func(uv cue.Value) error {
		u, err := CompileUnit(uv, s)
		if err == nil {
			b.Units = append(b.Units, u)
		}
		return err
	})
	each("network", func(nv cue.Value) error {
		n, err := CompileNetwork(nv)
		if err == nil {
			b.Networks = append(b.Networks, n)
		}
		return err
	})
	each("pipeline", func(pv cue.Value) error {
		p, err := CompilePipeline(pv)
		if err == nil {
			b.Pipelines = append(b.Pipelines, p)
		}
		return err
	})
	return b, errs
}
