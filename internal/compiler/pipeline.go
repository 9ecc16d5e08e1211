package compiler

import (
	"errors"
	"fmt"
	"time"

	"cuelang.org/go/cue"

	"github.com/eqhdl/eqhdl/internal/engine"
	"github.com/eqhdl/eqhdl/internal/program"
	"github.com/eqhdl/eqhdl/internal/rewrite"
)

var errScheduleParse = errors.New("schedule")

// PipelineSpec configures one rewrite pipeline.
type PipelineSpec struct {
	Name string
	// Rules is rule DSL source: rulesets, rewrites and optional
	// run-schedules.
	Rules string
	// Schedule, when set, is a schedule expression run after the rules.
	Schedule      string
	MaxIterations int
	NodeLimit     int
	Workers       int
	Timeout       time.Duration
}

// CompilePipeline parses a CUE value into a PipelineSpec:
//
//	pipeline: cleanup: {
//		rules: """
//			(rewrite (Not (Not a)) a :name double-not)
//			"""
//		schedule:       "(saturate (run 1))"
//		max_iterations: 50
//		timeout:        "5s"
//	}
func CompilePipeline(v cue.Value) (*PipelineSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &PipelineSpec{Name: label(v)}
	var err error
	if spec.Rules, err = requiredString(v, "rules"); err != nil {
		return nil, err
	}
	if spec.Schedule, err = optionalString(v, "schedule"); err != nil {
		return nil, err
	}

	for _, f := range []struct {
		path string
		dst  *int
	}{
		{"max_iterations", &spec.MaxIterations},
		{"node_limit", &spec.NodeLimit},
		{"workers", &spec.Workers},
	} {
		n, err := optionalInt(v, f.path)
		if err != nil {
			return nil, err
		}
		*f.dst = int(n)
	}

	timeout, err := optionalString(v, "timeout")
	if err != nil {
		return nil, err
	}
	if timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, &CompileError{Field: "timeout", Message: err.Error(), Pos: v.Pos()}
		}
		spec.Timeout = d
	}
	return spec, nil
}

// Program parses the rules and appends the schedule, if any.
func (p *PipelineSpec) Program() (program.Program, error) {
	prog, err := program.ParseNamed(p.Name, p.Rules)
	if err != nil {
		return program.Empty(), fmt.Errorf("pipeline %s rules: %w", p.Name, err)
	}
	if p.Schedule == "" {
		return prog, nil
	}
	sched, err := program.ParseSchedule(p.Schedule)
	if err != nil {
		return program.Empty(), fmt.Errorf("pipeline %s %w: %w", p.Name, errScheduleParse, err)
	}
	return program.Combine(prog, program.New(program.RunSchedule{Schedule: sched})), nil
}

// Options returns the rewrite options the pipeline declares.
func (p *PipelineSpec) Options() []rewrite.Option {
	var sess []engine.SessionOption
	if p.MaxIterations > 0 {
		sess = append(sess, engine.WithMaxIterations(p.MaxIterations))
	}
	if p.NodeLimit > 0 {
		sess = append(sess, engine.WithNodeLimit(p.NodeLimit))
	}
	opts := []rewrite.Option{rewrite.WithSessionOptions(sess...)}
	if p.Workers > 0 {
		opts = append(opts, rewrite.WithWorkers(p.Workers))
	}
	return opts
}
