package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/drillstore/internal/row"
	"github.com/roach88/drillstore/internal/store"
)

// ErrEmptyStack is returned by Undo or Redo when the stack is empty.
var ErrEmptyStack = errors.New("nothing to replay")

// Step summarizes one replayed group.
type Step struct {
	// Stack the group was taken from.
	Stack Stack `json:"stack" yaml:"stack"`
	// Group is the replayed group on Stack.
	Group int64 `json:"group" yaml:"group"`
	// Recorded is the group on the opposite stack that captured the inverse.
	Recorded int64 `json:"recorded" yaml:"recorded"`
	// Events is the number of reversed row changes.
	Events int `json:"events" yaml:"events"`
	// Tables lists the touched tables, sorted.
	Tables []string `json:"tables" yaml:"tables"`
}

// Undo reverses the newest undo group and records its inverse as a new redo
// group. Returns an error wrapping ErrEmptyStack if the undo stack is empty.
func (m *Manager) Undo(ctx context.Context, q store.Querier) (Step, error) {
	return m.replayLatest(ctx, q, StackUndo)
}

// Redo reapplies the newest redo group and records its inverse as a new undo
// group. Returns an error wrapping ErrEmptyStack if the redo stack is empty.
func (m *Manager) Redo(ctx context.Context, q store.Querier) (Step, error) {
	return m.replayLatest(ctx, q, StackRedo)
}

// UndoGroup reverses a specific undo group. The compensation path uses it to
// roll back exactly the group a failed mutation opened.
func (m *Manager) UndoGroup(ctx context.Context, q store.Querier, group int64) (Step, error) {
	return m.replay(ctx, q, StackUndo, group)
}

// DiscardGroup deletes every record of group on stack and returns how many
// were removed.
func (m *Manager) DiscardGroup(ctx context.Context, q store.Querier, stack Stack, group int64) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM history_log WHERE stack = ? AND history_group = ?`, stack, group)
	if err != nil {
		return 0, fmt.Errorf("discard %s group %d: %w", stack, group, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("discard %s group %d: rows affected: %w", stack, group, err)
	}
	return n, nil
}

// ClearRedo empties the redo stack. A new user change invalidates every
// redoable step.
func (m *Manager) ClearRedo(ctx context.Context, q store.Querier) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM history_log WHERE stack = ?`, StackRedo); err != nil {
		return fmt.Errorf("clear redo stack: %w", err)
	}
	return nil
}

// GroupSize returns the number of records tagged with group on stack.
func (m *Manager) GroupSize(ctx context.Context, q store.Querier, stack Stack, group int64) (int64, error) {
	var n int64
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM history_log WHERE stack = ? AND history_group = ?
	`, stack, group).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s group %d: %w", stack, group, err)
	}
	return n, nil
}

func (m *Manager) replayLatest(ctx context.Context, q store.Querier, from Stack) (Step, error) {
	var group sql.NullInt64
	err := q.QueryRowContext(ctx, `
		SELECT MAX(history_group) FROM history_log WHERE stack = ?
	`, from).Scan(&group)
	if err != nil {
		return Step{}, fmt.Errorf("find latest %s group: %w", from, err)
	}
	if !group.Valid {
		return Step{}, fmt.Errorf("%w: %s stack is empty", ErrEmptyStack, from)
	}
	return m.replay(ctx, q, from, group.Int64)
}

// replay reverses group on from. Capture is redirected to a fresh group on
// the opposite stack for the duration, then restored to the undo stack.
func (m *Manager) replay(ctx context.Context, q store.Querier, from Stack, group int64) (Step, error) {
	to := from.opposite()

	recorded, err := nextGroup(ctx, q, to)
	if err != nil {
		return Step{}, err
	}
	if err := setActiveStack(ctx, q, to); err != nil {
		return Step{}, err
	}

	records, err := groupRecords(ctx, q, from, group)
	if err != nil {
		return Step{}, err
	}

	events := groupEvents(records)
	tables := map[string]struct{}{}
	for _, e := range events {
		if err := m.reverse(ctx, q, e); err != nil {
			return Step{}, fmt.Errorf("replay %s group %d: %w", from, group, err)
		}
		tables[e.table] = struct{}{}
	}

	if _, err := m.DiscardGroup(ctx, q, from, group); err != nil {
		return Step{}, err
	}
	if err := setActiveStack(ctx, q, StackUndo); err != nil {
		return Step{}, err
	}

	step := Step{
		Stack:    from,
		Group:    group,
		Recorded: recorded,
		Events:   len(events),
		Tables:   make([]string, 0, len(tables)),
	}
	for t := range tables {
		step.Tables = append(step.Tables, t)
	}
	sort.Strings(step.Tables)

	return step, nil
}

// reverse applies the inverse of one recorded event.
func (m *Manager) reverse(ctx context.Context, q store.Querier, e event) error {
	ts, err := m.store.Schema(ctx, q, e.table)
	if err != nil {
		return err
	}

	switch e.op {
	case OpInsert:
		_, err = store.DeleteRow(ctx, q, ts, store.RowIDColumn, e.rowID)

	case OpUpdate:
		_, err = store.UpdateRow(ctx, q, ts, store.RowIDColumn, e.rowID, priorValues(e))

	case OpDelete:
		r := priorValues(e)
		if !hasColumn(r, ts.IDColumn) {
			r[store.RowIDColumn] = e.rowID
		}
		_, err = store.InsertRow(ctx, q, ts, r)

	default:
		err = fmt.Errorf("unknown history op %q", e.op)
	}
	if err != nil {
		return fmt.Errorf("reverse %s of %s rowid=%d: %w", e.op, e.table, e.rowID, err)
	}
	return nil
}

func priorValues(e event) row.Row {
	r := make(row.Row, len(e.columns))
	for _, c := range e.columns {
		r[c.Column] = c.PriorValue
	}
	return r
}

func hasColumn(r row.Row, name string) bool {
	for k := range r {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func setActiveStack(ctx context.Context, q store.Querier, stack Stack) error {
	if _, err := q.ExecContext(ctx, `UPDATE history_state SET active_stack = ? WHERE id = 1`, stack); err != nil {
		return fmt.Errorf("set active stack %s: %w", stack, err)
	}
	return nil
}
