// Package history records and replays row-level changes for undo/redo.
//
// Changes are captured by SQLite triggers that Install attaches to each
// application table. Every INSERT, UPDATE or DELETE appends column-level
// records to history_log:
//
//	insert  one record, no column: the row must be deleted to reverse it
//	update  one record per changed column holding the prior value
//	delete  one record per column holding the prior value
//
// Records carry the stack they belong to (undo or redo), the undo group that
// was active when the statement ran, and an event sequence shared by all
// records of one trigger firing. An undo group is one user-visible step.
//
// Undo replays the newest undo group in reverse sequence order. While it
// runs, the active stack is switched to redo so the triggers capture the
// inverse of each replayed change into a fresh redo group. Redo mirrors this.
//
// All Manager methods take a store.Querier. Callers that mutate more than one
// statement (replay, install) should pass a transaction.
package history
