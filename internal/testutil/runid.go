package testutil

// DefaultRunID is returned by a FixedRunIDGenerator built with an empty id.
const DefaultRunID = "test-run-default"

// FixedRunIDGenerator returns the same run id every time.
//
// Unlike engine.FixedGenerator, which hands out ids in sequence, every
// session and synthesis run of a scenario shares one id, so golden traces
// do not depend on how many runs a scenario performs.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id. The id is typically set
// in the scenario YAML:
//
//	run_id: "test-run-00000000-0000-0000-0000-000000000001"
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = DefaultRunID
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed id. Implements engine.SessionIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
