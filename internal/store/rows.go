package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/drillstore/internal/row"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("row not found")

	// ErrUnknownTable is returned when a table has no declared columns.
	ErrUnknownTable = errors.New("unknown table")
)

// selectList returns the projection that always carries the row identifier.
// Tables with an INTEGER PRIMARY KEY expose it through *; others get an
// explicit rowid column.
func selectList(ts TableSchema) string {
	if ts.IDColumn == RowIDColumn {
		return "rowid AS rowid, *"
	}
	return "*"
}

// GetRow fetches the single row whose idColumn equals id.
// Returns an error wrapping ErrNotFound if no row matches.
func GetRow(ctx context.Context, q Querier, ts TableSchema, idColumn string, id int64) (row.Row, error) {
	col, err := ts.ResolveIDColumn(idColumn)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		selectList(ts), QuoteIdent(ts.Name), columnRef(col))

	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get row %s.%s=%d: %w", ts.Name, col, id, err)
	}
	defer rows.Close()

	found, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("get row %s.%s=%d: %w", ts.Name, col, id, err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s.%s=%d", ErrNotFound, ts.Name, col, id)
	}
	return found[0], nil
}

// FindRows returns every row whose idColumn equals id, ordered by row
// identifier. A column that is not unique may match several rows.
func FindRows(ctx context.Context, q Querier, ts TableSchema, idColumn string, id int64) ([]row.Row, error) {
	col, err := ts.ResolveIDColumn(idColumn)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s ASC",
		selectList(ts), QuoteIdent(ts.Name), columnRef(col), columnRef(ts.IDColumn))

	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("find rows %s.%s=%d: %w", ts.Name, col, id, err)
	}
	defer rows.Close()

	found, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("find rows %s.%s=%d: %w", ts.Name, col, id, err)
	}
	return found, nil
}

// AllRows returns every row of the table ordered by row identifier.
// Returns an empty slice (not nil) for an empty table.
func AllRows(ctx context.Context, q Querier, ts TableSchema) ([]row.Row, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s ASC",
		selectList(ts), QuoteIdent(ts.Name), columnRef(ts.IDColumn))

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all %s: %w", ts.Name, err)
	}
	defer rows.Close()

	found, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("query all %s: %w", ts.Name, err)
	}
	return found, nil
}

// CountRows returns the number of rows in the table.
func CountRows(ctx context.Context, q Querier, ts TableSchema) (int64, error) {
	var n int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", QuoteIdent(ts.Name))
	if err := q.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", ts.Name, err)
	}
	return n, nil
}

// InsertRow inserts r and returns the new row identifier.
// Columns are written in sorted order so statements are deterministic.
func InsertRow(ctx context.Context, q Querier, ts TableSchema, r row.Row) (int64, error) {
	keys := r.SortedKeys()

	var query string
	args := make([]any, 0, len(keys))
	if len(keys) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", QuoteIdent(ts.Name))
	} else {
		cols := make([]string, len(keys))
		marks := make([]string, len(keys))
		for i, k := range keys {
			cols[i] = columnRef(k)
			marks[i] = "?"
			args = append(args, r[k])
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			QuoteIdent(ts.Name), strings.Join(cols, ", "), strings.Join(marks, ", "))
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", ts.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert into %s: last insert id: %w", ts.Name, err)
	}
	return id, nil
}

// UpdateRow sets the columns in r on the row whose idColumn equals id and
// returns the number of rows changed. An empty r is a no-op.
func UpdateRow(ctx context.Context, q Querier, ts TableSchema, idColumn string, id int64, r row.Row) (int64, error) {
	col, err := ts.ResolveIDColumn(idColumn)
	if err != nil {
		return 0, err
	}

	keys := r.SortedKeys()
	if len(keys) == 0 {
		return 0, nil
	}

	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+1)
	for i, k := range keys {
		sets[i] = columnRef(k) + " = ?"
		args = append(args, r[k])
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		QuoteIdent(ts.Name), strings.Join(sets, ", "), columnRef(col))

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s.%s=%d: %w", ts.Name, col, id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s.%s=%d: rows affected: %w", ts.Name, col, id, err)
	}
	return n, nil
}

// DeleteRow removes the row(s) whose idColumn equals id and returns the
// number of rows removed.
func DeleteRow(ctx context.Context, q Querier, ts TableSchema, idColumn string, id int64) (int64, error) {
	col, err := ts.ResolveIDColumn(idColumn)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", QuoteIdent(ts.Name), columnRef(col))
	res, err := q.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("delete %s.%s=%d: %w", ts.Name, col, id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s.%s=%d: rows affected: %w", ts.Name, col, id, err)
	}
	return n, nil
}

// scanRows reads every remaining row into column-keyed maps.
func scanRows(rows *sql.Rows) ([]row.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := []row.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		r := make(row.Row, len(cols))
		for i, c := range cols {
			r[c] = values[i]
		}
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}

	return out, nil
}
