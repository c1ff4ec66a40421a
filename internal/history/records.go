package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/drillstore/internal/store"
)

// Op names the statement a history record reverses.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Record is one row of history_log.
type Record struct {
	ID         int64  `json:"id" yaml:"id"`
	Stack      Stack  `json:"stack" yaml:"stack"`
	Group      int64  `json:"group" yaml:"group"`
	Sequence   int64  `json:"sequence" yaml:"sequence"`
	Table      string `json:"table" yaml:"table"`
	RowID      int64  `json:"row_id" yaml:"row_id"`
	Op         Op     `json:"op" yaml:"op"`
	Column     string `json:"column,omitempty" yaml:"column,omitempty"`
	PriorValue any    `json:"prior_value,omitempty" yaml:"prior_value,omitempty"`
}

const recordColumns = `id, stack, history_group, sequence, table_name, row_id, op, column_name, prior_value`

// Records lists history records oldest first. An empty stack lists both.
// Returns an empty slice (not nil) when there is no history.
func (m *Manager) Records(ctx context.Context, q store.Querier, stack Stack) ([]Record, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if stack == "" {
		rows, err = q.QueryContext(ctx, `
			SELECT `+recordColumns+` FROM history_log
			ORDER BY stack DESC, history_group ASC, sequence ASC, id ASC
		`)
	} else {
		rows, err = q.QueryContext(ctx, `
			SELECT `+recordColumns+` FROM history_log WHERE stack = ?
			ORDER BY history_group ASC, sequence ASC, id ASC
		`, stack)
	}
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// groupRecords returns the records of one group newest event first. Records
// of the same event keep their insertion order.
func groupRecords(ctx context.Context, q store.Querier, stack Stack, group int64) ([]Record, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+recordColumns+` FROM history_log
		WHERE stack = ? AND history_group = ?
		ORDER BY sequence DESC, id ASC
	`, stack, group)
	if err != nil {
		return nil, fmt.Errorf("load %s group %d: %w", stack, group, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	out := []Record{}
	for rows.Next() {
		var (
			r      Record
			column sql.NullString
		)
		err := rows.Scan(&r.ID, &r.Stack, &r.Group, &r.Sequence, &r.Table, &r.RowID, &r.Op, &column, &r.PriorValue)
		if err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		r.Column = column.String
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history records: %w", err)
	}

	return out, nil
}

// event is the set of records written by one trigger firing.
type event struct {
	table    string
	rowID    int64
	op       Op
	sequence int64
	columns  []Record
}

// groupEvents folds records ordered by sequence into events, preserving order.
func groupEvents(records []Record) []event {
	var events []event
	for _, r := range records {
		if n := len(events); n > 0 && events[n-1].sequence == r.Sequence {
			if r.Column != "" {
				events[n-1].columns = append(events[n-1].columns, r)
			}
			continue
		}
		e := event{table: r.Table, rowID: r.RowID, op: r.Op, sequence: r.Sequence}
		if r.Column != "" {
			e.columns = append(e.columns, r)
		}
		events = append(events, e)
	}
	return events
}
