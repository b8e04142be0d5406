// Package harness provides conformance testing for promotion plans.
//
// A scenario describes a live project, its identity mapping and a desired
// state, then asserts on the plan the diff engine produces and, optionally,
// on the project after the plan was applied by the release service.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: update_and_create
//	description: "A mapped flow changes and a new flow appears"
//	live:
//	  - id: t1
//	    external_id: a
//	    display_name: Approve
//	    definition: { step: v1 }
//	mapping:
//	  a: { target: t1 }
//	desired:
//	  - id: s1
//	    external_id: a
//	    display_name: Approve
//	    definition: { step: v2 }
//	select: [s1]          # optional; omitted selects everything
//	apply: true           # optional; run the release and check final state
//	assertions:
//	  - type: operation
//	    op: UPDATE_FLOW
//	    flow: s1
//	    target: t1
//	  - type: mapping_entry
//	    key: a
//	    target: t1
//
// # Assertion Types
//
//   - operation: the plan contains an operation of type op on flow (and target)
//   - operation_order: the listed flow ids appear in the plan in this order
//   - operation_count: the plan has count operations (of type op, if given)
//   - error: the plan reports code for flow
//   - error_count: the plan reports exactly count errors
//   - live_flow: after apply, the flow with external id key exists with
//     display_name, or does not exist when absent is set
//   - mapping_entry: after apply, key maps to target (and is a tombstone when
//     deleted is set)
//
// # Deterministic Testing
//
// Every scenario runs on a fresh in-memory store. Flows created by a release
// get ids "live-1", "live-2", ... and timestamps come from testutil.Clock, so
// plans and final states are reproducible and can be compared against golden
// files.
package harness
