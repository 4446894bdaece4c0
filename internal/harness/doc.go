// Package harness runs workflow scenarios end to end and checks their
// traces.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: fanout_sum
//	description: "Two consumers share one source"
//	workflow: workflows/fanout.yaml
//	run_id: test-run-001
//	expect:
//	  status: completed
//	  values: [10, 20]
//	assertions:
//	  - type: trace_contains
//	    value: 10
//	  - type: trace_order
//	    values: [10, 20]
//	  - type: trace_count
//	    kind: next
//	    count: 2
//	  - type: final_state
//	    table: runs
//	    where: { id: test-run-001 }
//	    expect: { status: completed }
//
// The workflow path is relative to the scenario file. A scenario that
// expects a failure names the error code instead of values:
//
//	expect:
//	  error: CYCLE
//
// Build failures match the code of the innermost build error; run
// failures match the engine's error code.
//
// # Deterministic Runs
//
// Each scenario runs against a fresh in-memory store with a fixed run ID
// (testutil.FixedRunIDGenerator) and a logical clock starting at 0
// (testutil.DeterministicClock), so the stored trace of a scenario is
// identical across runs and can be compared with a golden file.
package harness
