package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/eqhdl/eqhdl/internal/store"
)

// Scenario defines a conformance test scenario: a rewrite step, a
// synthesis step, or both, followed by assertions on what they produced.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Specs lists CUE files to compile into a bundle.
	Specs []string `yaml:"specs"`

	// Rewrite runs a pipeline from the bundle over some of its units.
	Rewrite *RewriteStep `yaml:"rewrite,omitempty"`

	// Synth runs logic synthesis over a network from the bundle.
	Synth *SynthStep `yaml:"synth,omitempty"`

	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed id for every session and synthesis run.
	// Empty means testutil.DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`
}

// RewriteStep names a pipeline and the units it rewrites.
type RewriteStep struct {
	Pipeline string `yaml:"pipeline"`
	// Units lists unit names; empty means every unit in the bundle.
	Units []string `yaml:"units,omitempty"`
}

// SynthStep names the network to synthesize.
type SynthStep struct {
	Network string `yaml:"network"`
}

// GateSpec is a gate tuple without its relation.
type GateSpec struct {
	ID   int64 `yaml:"id"`
	A    int64 `yaml:"a"`
	B    int64 `yaml:"b"`
	Cost int64 `yaml:"cost"`
}

// Assertion validates rewrite outcomes or synthesis state.
type Assertion struct {
	Type string `yaml:"type"`

	// Unit is the unit name (unit_term, unit_improved).
	Unit string `yaml:"unit,omitempty"`

	// Term is the expected extracted term (unit_term).
	Term string `yaml:"term,omitempty"`

	// Improved is the expected improvement flag (unit_improved).
	Improved *bool `yaml:"improved,omitempty"`

	// Relation is and_gates or or_gates (relation_count, gate_exists).
	Relation string `yaml:"relation,omitempty"`

	// Gate is the expected tuple (gate_exists).
	Gate *GateSpec `yaml:"gate,omitempty"`

	// Count is the expected number (relation_count, rounds,
	// proposals_verify).
	Count int `yaml:"count"`
}

// Assertion type constants.
const (
	AssertUnitTerm        = "unit_term"
	AssertUnitImproved    = "unit_improved"
	AssertRelationCount   = "relation_count"
	AssertGateExists      = "gate_exists"
	AssertRounds          = "rounds"
	AssertProposalsVerify = "proposals_verify"
)

// LoadScenario reads and parses a scenario YAML file. Spec paths are
// resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving spec paths relative to basePath.
// Unknown fields (typos) and missing required fields are errors.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, specPath := range scenario.Specs {
		if !filepath.IsAbs(specPath) && basePath != "" {
			scenario.Specs[i] = filepath.Join(basePath, specPath)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Specs) == 0 {
		return fmt.Errorf("specs list is required and must be non-empty")
	}
	if s.Rewrite == nil && s.Synth == nil {
		return fmt.Errorf("a rewrite or synth step is required")
	}
	if s.Rewrite != nil && s.Rewrite.Pipeline == "" {
		return fmt.Errorf("rewrite: pipeline is required")
	}
	if s.Synth != nil && s.Synth.Network == "" {
		return fmt.Errorf("synth: network is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, specPath := range s.Specs {
		if _, err := os.Stat(specPath); os.IsNotExist(err) {
			return fmt.Errorf("spec file not found: %s", specPath)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], s); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, s *Scenario) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needs := func(step string, present bool) error {
		if !present {
			return fmt.Errorf("assertions[%d]: %s needs a %s step", index, a.Type, step)
		}
		return nil
	}

	switch a.Type {
	case AssertUnitTerm, AssertUnitImproved:
		if err := needs("rewrite", s.Rewrite != nil); err != nil {
			return err
		}
		if a.Unit == "" {
			return fmt.Errorf("assertions[%d]: unit is required for %s", index, a.Type)
		}
		if a.Type == AssertUnitTerm && a.Term == "" {
			return fmt.Errorf("assertions[%d]: term is required for unit_term", index)
		}
		if a.Type == AssertUnitImproved && a.Improved == nil {
			return fmt.Errorf("assertions[%d]: improved is required for unit_improved", index)
		}
	case AssertRelationCount, AssertGateExists:
		if err := needs("synth", s.Synth != nil); err != nil {
			return err
		}
		if !store.Relation(a.Relation).Valid() {
			return fmt.Errorf("assertions[%d]: unknown relation %q", index, a.Relation)
		}
		if a.Type == AssertGateExists && a.Gate == nil {
			return fmt.Errorf("assertions[%d]: gate is required for gate_exists", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertRounds, AssertProposalsVerify:
		if err := needs("synth", s.Synth != nil); err != nil {
			return err
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
