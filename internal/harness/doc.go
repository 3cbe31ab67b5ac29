// Package harness runs behaviour scenarios against the CRM record store.
//
// A scenario is a YAML file listing steps, each translated into one
// fixture command, and assertions over the resulting command trace and the
// final records.
//
// # Scenario Format
//
//	name: contact_lifecycle
//	description: "Create, update and check a contact"
//	schema:
//	  - schema/crm.cue
//	steps:
//	  - create: contact
//	    alias: John
//	    values: {firstname: John, lastname: Doe}
//	  - update: John
//	    values: {lastname: Smith}
//	  - assert: John
//	    values: {lastname: Smith}
//	  - delete: Ghost
//	    expect_error: alias
//	assertions:
//	  - type: trace_contains
//	    action: UpdateRecord
//	    args: {target: John}
//	  - type: record_count
//	    entity: contact
//	    where: {lastname: Smith}
//	    count: 1
//
// # Assertion Types
//
//   - trace_contains: a command appears in the trace with matching args (subset match)
//   - trace_order: commands appear in the specified order
//   - trace_count: a command appears exactly N times
//   - record_count: exactly N records of an entity match a where table
//
// # Deterministic Testing
//
// Every scenario runs in a fresh in-memory SQLite store. Record ids are
// name-based UUIDs seeded with the scenario name and timestamps come from
// testutil.DeterministicClock, so the canonical trace (and its digest) is
// identical across runs and can be compared with a golden file.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/contact_lifecycle.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
