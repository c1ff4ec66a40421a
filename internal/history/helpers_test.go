package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/drillstore/internal/row"
	"github.com/roach88/drillstore/internal/store"
)

// setup opens a temp store with an instrumented widgets table.
func setup(t *testing.T) (*store.Store, *Manager) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.Exec(ctx, `
		CREATE TABLE widgets (
			id   INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			size REAL DEFAULT 1.0
		)
	`))

	m := NewManager(st)
	require.NoError(t, st.WithTx(ctx, func(tx store.Querier) error {
		_, err := m.Install(ctx, tx, "widgets")
		return err
	}))
	return st, m
}

// step opens a new undo group and runs stmt inside it.
func step(t *testing.T, st *store.Store, m *Manager, stmt string, args ...any) int64 {
	t.Helper()
	ctx := context.Background()
	var group int64
	require.NoError(t, st.WithTx(ctx, func(tx store.Querier) error {
		var err error
		if group, err = m.NextGroup(ctx, tx); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, stmt, args...)
		return err
	}))
	return group
}

func undo(t *testing.T, st *store.Store, m *Manager) Step {
	t.Helper()
	var s Step
	require.NoError(t, st.WithTx(context.Background(), func(tx store.Querier) error {
		var err error
		s, err = m.Undo(context.Background(), tx)
		return err
	}))
	return s
}

func redo(t *testing.T, st *store.Store, m *Manager) Step {
	t.Helper()
	var s Step
	require.NoError(t, st.WithTx(context.Background(), func(tx store.Querier) error {
		var err error
		s, err = m.Redo(context.Background(), tx)
		return err
	}))
	return s
}

func widgets(t *testing.T, st *store.Store) []row.Row {
	t.Helper()
	ctx := context.Background()
	ts, err := st.Schema(ctx, st.DB(), "widgets")
	require.NoError(t, err)
	rows, err := store.AllRows(ctx, st.DB(), ts)
	require.NoError(t, err)
	return rows
}

func records(t *testing.T, st *store.Store, m *Manager, stack Stack) []Record {
	t.Helper()
	recs, err := m.Records(context.Background(), st.DB(), stack)
	require.NoError(t, err)
	return recs
}
