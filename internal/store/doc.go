// Package store provides the SQLite-backed relational store for drillstore.
//
// The store is table-agnostic. It knows nothing about shapes, marchers or
// pages; every application table is discovered at runtime through
// pragma_table_info and accessed through the generic row helpers.
//
// # Layout
//
//   - Application tables: arbitrary, optionally with created_at/updated_at
//     TEXT columns
//   - history_log: column-level change records written by history triggers
//   - history_state: single-row bookkeeping (undo/redo group counters,
//     active stack, event sequence)
//
// The history tables are created by embedded goose migrations on Open.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - One open connection: all callers share a single writer
//
// Because the pool holds exactly one connection, code running inside a
// transaction must issue every statement through that transaction. All row
// and schema helpers therefore accept a Querier rather than using the pool.
package store
