// Package engine is the boundary every application mutation goes through.
//
// The engine offers table-agnostic reads and multi-row create, update and
// delete batches driven by runtime schema reflection. Each batch is one undo
// step: the engine opens an undo group before writing, lets the history
// triggers tag every row change with it, and advances the group afterwards.
//
// BATCH LIFECYCLE:
//
//  1. Pre-validate: update and delete resolve every id first. Any missing id
//     fails the whole batch before a single write.
//  2. Open group: history.Manager.NextGroup.
//  3. Apply: one single-row statement per item. Create strips caller ids.
//     created_at and updated_at are stamped from one clock reading per call.
//  4. Re-fetch: created and updated rows are read back. A row that cannot be
//     read back fails the batch with ReFetchInconsistency.
//  5. Fold: with UseNextUndoGroup=false a batch that wrote rows is merged into
//     the previous undo group.
//  6. Commit or compensate (see Compensation).
//  7. Advance: with UseNextUndoGroup=true the group counter is advanced again
//     so later writes never join this step.
//
// CONCURRENCY:
//
// Every exported method takes the engine mutex for its whole duration, so
// calls are serialised. Internal helpers do no locking. The store holds one
// connection.
//
// RESULTS:
//
// Exported methods never return raw errors or panic. They return a Result
// carrying either data or an ErrorInfo with a Kind. Failed calls carry the
// neutral value: nil for a single row, an empty slice for lists.
package engine
