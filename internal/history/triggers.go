package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/drillstore/internal/store"
)

// ErrInternalTable is returned when instrumenting a table the store owns.
var ErrInternalTable = errors.New("refusing to install history on internal table")

// triggerOps lists the statements each instrumented table is hooked on.
var triggerOps = []string{"insert", "update", "delete"}

// TriggerName returns the name of the history trigger for table and op.
func TriggerName(table, op string) string {
	return "history_" + table + "_" + op
}

// Install (re)creates the insert, update and delete history triggers for
// table from its current columns and returns the schema they were built
// from. Existing triggers of the same name are replaced, so calling Install
// again after ALTER TABLE picks up new columns.
//
// q should be a transaction so the table is never left half instrumented.
func (m *Manager) Install(ctx context.Context, q store.Querier, table string) (store.TableSchema, error) {
	if store.IsInternalTable(table) {
		return store.TableSchema{}, fmt.Errorf("%w: %q", ErrInternalTable, table)
	}

	ts, err := m.store.Schema(ctx, q, table)
	if err != nil {
		return store.TableSchema{}, fmt.Errorf("install history on %q: %w", table, err)
	}

	for _, op := range triggerOps {
		name := store.QuoteIdent(TriggerName(table, op))
		if _, err := q.ExecContext(ctx, "DROP TRIGGER IF EXISTS "+name); err != nil {
			return store.TableSchema{}, fmt.Errorf("drop %s trigger on %q: %w", op, table, err)
		}
		if _, err := q.ExecContext(ctx, triggerSQL(ts, op)); err != nil {
			return store.TableSchema{}, fmt.Errorf("create %s trigger on %q: %w", op, table, err)
		}
	}

	return ts, nil
}

// recordPrefix is the shared head of every history_log insert issued from a
// trigger body. The row tag comes from history_state so replay can redirect
// capture to the redo stack.
const recordPrefix = `INSERT INTO history_log (stack, history_group, sequence, table_name, row_id, op, column_name, prior_value)
    SELECT active_stack, CASE active_stack WHEN 'undo' THEN undo_group ELSE redo_group END, sequence, `

const bumpSequence = `UPDATE history_state SET sequence = sequence + 1 WHERE id = 1;`

// triggerSQL renders the CREATE TRIGGER statement for one operation.
func triggerSQL(ts store.TableSchema, op string) string {
	var b strings.Builder

	table := store.QuoteLiteral(ts.Name)
	fmt.Fprintf(&b, "CREATE TRIGGER %s AFTER %s ON %s\nBEGIN\n  %s\n",
		store.QuoteIdent(TriggerName(ts.Name, op)), strings.ToUpper(op), store.QuoteIdent(ts.Name), bumpSequence)

	switch op {
	case "insert":
		fmt.Fprintf(&b, "  %s%s, NEW.rowid, 'insert', NULL, NULL\n    FROM history_state WHERE id = 1;\n",
			recordPrefix, table)

	case "update":
		for _, c := range ts.Columns {
			col := store.QuoteIdent(c.Name)
			fmt.Fprintf(&b, "  %s%s, NEW.rowid, 'update', %s, OLD.%s\n    FROM history_state WHERE id = 1 AND OLD.%s IS NOT NEW.%s;\n",
				recordPrefix, table, store.QuoteLiteral(c.Name), col, col, col)
		}

	case "delete":
		for _, c := range ts.Columns {
			fmt.Fprintf(&b, "  %s%s, OLD.rowid, 'delete', %s, OLD.%s\n    FROM history_state WHERE id = 1;\n",
				recordPrefix, table, store.QuoteLiteral(c.Name), store.QuoteIdent(c.Name))
		}
	}

	b.WriteString("END")
	return b.String()
}
