package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/drillstore/internal/store"
)

// CurrentGroup returns the highest undo group ever issued, or 0 when no
// history exists.
func (m *Manager) CurrentGroup(ctx context.Context, q store.Querier) (int64, error) {
	return currentGroup(ctx, q, StackUndo)
}

// NextGroup allocates a new undo group strictly greater than CurrentGroup and
// makes it the group new history records are tagged with. Every call
// advances the counter.
func (m *Manager) NextGroup(ctx context.Context, q store.Querier) (int64, error) {
	return nextGroup(ctx, q, StackUndo)
}

// MergeLastGroupIntoPrevious re-tags every undo record of the newest group
// with the greatest strictly smaller group present in the log, so both are
// undone as one step. Returns false without changes when the log has fewer
// than two undo groups.
func (m *Manager) MergeLastGroupIntoPrevious(ctx context.Context, q store.Querier) (bool, error) {
	var last sql.NullInt64
	err := q.QueryRowContext(ctx, `
		SELECT MAX(history_group) FROM history_log WHERE stack = ?
	`, StackUndo).Scan(&last)
	if err != nil {
		return false, fmt.Errorf("merge group: read last: %w", err)
	}
	if !last.Valid {
		return false, nil
	}

	var prev sql.NullInt64
	err = q.QueryRowContext(ctx, `
		SELECT MAX(history_group) FROM history_log WHERE stack = ? AND history_group < ?
	`, StackUndo, last.Int64).Scan(&prev)
	if err != nil {
		return false, fmt.Errorf("merge group: read previous: %w", err)
	}
	if !prev.Valid {
		return false, nil
	}

	_, err = q.ExecContext(ctx, `
		UPDATE history_log SET history_group = ? WHERE stack = ? AND history_group = ?
	`, prev.Int64, StackUndo, last.Int64)
	if err != nil {
		return false, fmt.Errorf("merge group %d into %d: %w", last.Int64, prev.Int64, err)
	}

	return true, nil
}

// Groups returns the distinct groups present on stack, oldest first.
func (m *Manager) Groups(ctx context.Context, q store.Querier, stack Stack) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT history_group FROM history_log WHERE stack = ? ORDER BY history_group ASC
	`, stack)
	if err != nil {
		return nil, fmt.Errorf("list %s groups: %w", stack, err)
	}
	defer rows.Close()

	groups := []int64{}
	for rows.Next() {
		var g int64
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan %s group: %w", stack, err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s groups: %w", stack, err)
	}

	return groups, nil
}

// currentGroup returns max(counter, newest group in the log) for stack.
func currentGroup(ctx context.Context, q store.Querier, stack Stack) (int64, error) {
	var cur int64
	query := fmt.Sprintf(`
		SELECT MAX(s.%s, COALESCE((SELECT MAX(history_group) FROM history_log WHERE stack = ?), 0))
		FROM history_state s WHERE s.id = 1
	`, stack.counterColumn())
	if err := q.QueryRowContext(ctx, query, stack).Scan(&cur); err != nil {
		return 0, fmt.Errorf("current %s group: %w", stack, err)
	}
	return cur, nil
}

// nextGroup persists and returns currentGroup+1 for stack.
func nextGroup(ctx context.Context, q store.Querier, stack Stack) (int64, error) {
	cur, err := currentGroup(ctx, q, stack)
	if err != nil {
		return 0, err
	}
	next := cur + 1

	query := fmt.Sprintf(`UPDATE history_state SET %s = ? WHERE id = 1`, stack.counterColumn())
	if _, err := q.ExecContext(ctx, query, next); err != nil {
		return 0, fmt.Errorf("next %s group: %w", stack, err)
	}
	return next, nil
}
