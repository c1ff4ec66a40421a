// Package harness runs YAML scenarios against a fresh drillstore engine and
// compares the resulting traces with golden snapshots.
//
// # Scenario Format
//
//	name: widgets_undo
//	description: "Create, undo and redo a batch"
//	compensation: transaction   # or replay
//	setup:
//	  - CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)
//	history:
//	  - widgets
//	steps:
//	  - op: create
//	    table: widgets
//	    items: [{name: flag}, {name: rifle}]
//	    expect: {success: true, count: 2}
//	  - op: delete
//	    table: widgets
//	    ids: [1, 9999]
//	    expect: {success: false, error_kind: NotFound, missing_ids: [9999]}
//	  - op: undo
//	final_state:
//	  widgets: 2
//	assertions:
//	  - type: final_state
//	    table: widgets
//	    where: {id: 1}
//	    expect: {name: flag}
//
// # Assertion Types
//
//   - final_state: a row matching where exists and carries the expect values
//   - trace_count: op appears exactly count times in the trace
//   - stack_depth: the undo or redo stack holds exactly count groups
//
// # Determinism
//
// Every scenario runs in an in-memory SQLite database with sequential op ids
// and a fixed clock that starts at testutil.DefaultTime and advances one
// second per step. Traces are byte-stable and can be compared against
// testdata/golden/<name>.golden.
package harness
