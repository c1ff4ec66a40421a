package store

import (
	"context"
	"fmt"
	"strings"
)

// Column describes one declared column as reported by pragma_table_info.
type Column struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	NotNull    bool    `json:"not_null"`
	Default    *string `json:"default,omitempty"`
	PrimaryKey int     `json:"primary_key"` // 1-based position in the primary key, 0 if not part of it
}

// TableSchema is the capability descriptor for one application table.
type TableSchema struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`

	// IDColumn is the INTEGER PRIMARY KEY alias when the table declares one,
	// otherwise RowIDColumn.
	IDColumn string `json:"id_column"`

	HasCreatedAt bool `json:"has_created_at"`
	HasUpdatedAt bool `json:"has_updated_at"`
}

// HasColumn reports whether name is a declared column (case-insensitive, as
// SQLite resolves identifiers).
func (ts TableSchema) HasColumn(name string) bool {
	for _, c := range ts.Columns {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// ColumnNames returns declared column names in declaration order.
func (ts TableSchema) ColumnNames() []string {
	names := make([]string, len(ts.Columns))
	for i, c := range ts.Columns {
		names[i] = c.Name
	}
	return names
}

// ResolveIDColumn validates a caller-supplied id column. An empty name
// selects rowid.
func (ts TableSchema) ResolveIDColumn(name string) (string, error) {
	if name == "" || strings.EqualFold(name, RowIDColumn) {
		return RowIDColumn, nil
	}
	for _, c := range ts.Columns {
		if strings.EqualFold(c.Name, name) {
			return c.Name, nil
		}
	}
	return "", fmt.Errorf("table %q has no column %q", ts.Name, name)
}

// Columns returns the set of declared column names for table.
// An unknown table yields an empty set, not an error.
func Columns(ctx context.Context, q Querier, table string) (map[string]struct{}, error) {
	cols, err := readColumns(ctx, q, table)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c.Name] = struct{}{}
	}
	return set, nil
}

// Schema returns the TableSchema for table.
//
// Descriptors are cached per table. The cache is dropped whenever SQLite's
// schema_version changes, so DDL issued between calls is visible to the next
// call without an explicit refresh. Returns an error wrapping ErrUnknownTable
// if the table has no columns.
func (s *Store) Schema(ctx context.Context, q Querier, table string) (TableSchema, error) {
	var version int64
	if err := q.QueryRowContext(ctx, "PRAGMA schema_version").Scan(&version); err != nil {
		return TableSchema{}, fmt.Errorf("read schema version: %w", err)
	}

	s.mu.Lock()
	if version != s.schemaVersion {
		s.schemas = make(map[string]TableSchema)
		s.schemaVersion = version
	}
	ts, ok := s.schemas[table]
	s.mu.Unlock()
	if ok {
		return ts, nil
	}

	ts, err := ReflectSchema(ctx, q, table)
	if err != nil {
		return TableSchema{}, err
	}

	s.mu.Lock()
	if version == s.schemaVersion {
		s.schemas[table] = ts
	}
	s.mu.Unlock()

	return ts, nil
}

// ReflectSchema builds a TableSchema without consulting any cache.
func ReflectSchema(ctx context.Context, q Querier, table string) (TableSchema, error) {
	cols, err := readColumns(ctx, q, table)
	if err != nil {
		return TableSchema{}, err
	}
	if len(cols) == 0 {
		return TableSchema{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}

	ts := TableSchema{
		Name:     table,
		Columns:  cols,
		IDColumn: RowIDColumn,
	}

	var pkCols []Column
	for _, c := range cols {
		switch strings.ToLower(c.Name) {
		case "created_at":
			ts.HasCreatedAt = true
		case "updated_at":
			ts.HasUpdatedAt = true
		}
		if c.PrimaryKey > 0 {
			pkCols = append(pkCols, c)
		}
	}

	// Only a single-column INTEGER PRIMARY KEY aliases the rowid.
	if len(pkCols) == 1 && strings.EqualFold(pkCols[0].Type, "INTEGER") {
		ts.IDColumn = pkCols[0].Name
	}

	return ts, nil
}

func readColumns(ctx context.Context, q Querier, table string) ([]Column, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name, type, "notnull", dflt_value, pk
		FROM pragma_table_info(?)
		ORDER BY cid ASC
	`, table)
	if err != nil {
		return nil, fmt.Errorf("table info %q: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		var notNull int
		if err := rows.Scan(&c.Name, &c.Type, &notNull, &c.Default, &c.PrimaryKey); err != nil {
			return nil, fmt.Errorf("scan table info %q: %w", table, err)
		}
		c.NotNull = notNull != 0
		cols = append(cols, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info %q: %w", table, err)
	}

	if cols == nil {
		cols = []Column{}
	}

	return cols, nil
}
