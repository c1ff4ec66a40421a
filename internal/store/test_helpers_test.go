package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createWidgets creates the widgets fixture table used across store tests.
func createWidgets(t *testing.T, s *Store) {
	t.Helper()
	err := s.Exec(context.Background(), `
		CREATE TABLE widgets (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			size       REAL DEFAULT 1.0,
			created_at TEXT,
			updated_at TEXT
		)
	`)
	if err != nil {
		t.Fatalf("create widgets: %v", err)
	}
}

// getTableColumns returns the declared column names of table.
func getTableColumns(t *testing.T, s *Store, table string) []string {
	t.Helper()
	set, err := Columns(context.Background(), s.DB(), table)
	if err != nil {
		t.Fatalf("Columns(%q) failed: %v", table, err)
	}
	cols := make([]string, 0, len(set))
	for c := range set {
		cols = append(cols, c)
	}
	return cols
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
