// Package harness runs conformance scenarios against the rewrite pipeline
// and the logic synthesis engine.
//
// # Scenario Format
//
// Scenarios are YAML files. Specs are CUE files holding units, networks and
// pipelines (see package compiler); paths are relative to the scenario file.
//
//	name: factor_or_shared
//	description: "a·b + a·c factors to a·(b + c)"
//	specs:
//	  - ../specs/shared.cue
//	synth:
//	  network: shared
//	rewrite:
//	  pipeline: cleanup
//	  units: ["@f"]
//	assertions:
//	  - type: relation_count
//	    relation: and_gates
//	    count: 3
//	  - type: gate_exists
//	    relation: or_gates
//	    gate: { id: 13, a: 11, b: 12, cost: 2 }
//	  - type: unit_term
//	    unit: "@f"
//	    term: "(Root (RetValue %0))"
//
// # Assertion Types
//
//   - unit_term: the extracted term of a rewritten unit
//   - unit_improved: whether extraction shrank a unit
//   - relation_count: the size of a gate relation after synthesis
//   - gate_exists: a tuple is present after synthesis
//   - rounds: the number of synthesis rounds
//   - proposals_verify: how many proposals the run made; every one must
//     pass the SAT equivalence check
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory store with a deterministic
// clock (testutil.DeterministicClock) and a fixed run id, so traces are
// byte-identical across runs and can be compared with golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/factor_or.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//		log.Println(msg)
//	}
package harness
