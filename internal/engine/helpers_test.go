package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/drillstore/internal/history"
	"github.com/roach88/drillstore/internal/row"
	"github.com/roach88/drillstore/internal/store"
	"github.com/roach88/drillstore/internal/testutil"
)

var modes = []Compensation{CompensationTransaction, CompensationReplay}

type fixture struct {
	engine *Engine
	store  *store.Store
	clock  *testutil.FixedClock
}

// setupEngine opens a temp store with an instrumented widgets table.
func setupEngine(t *testing.T, mode Compensation, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.Exec(ctx, `
		CREATE TABLE widgets (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			size       REAL DEFAULT 1.0,
			created_at TEXT,
			updated_at TEXT
		)
	`))

	clock := testutil.NewFixedClock(testutil.DefaultTime)
	base := []Option{
		WithClock(clock),
		WithCompensation(mode),
		WithIDGenerator(testutil.NewSequenceIDs("test")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	e := New(st, history.NewManager(st), append(base, opts...)...)

	res := e.InstallHistory(ctx, "widgets")
	require.True(t, res.Success, "install history: %+v", res.Error)

	return &fixture{engine: e, store: st, clock: clock}
}

func (f *fixture) create(t *testing.T, items ...row.Row) []row.Row {
	t.Helper()
	res := f.engine.CreateMany(context.Background(), CreateManyRequest{Table: "widgets", Items: items})
	require.True(t, res.Success, "create: %+v", res.Error)
	return res.Data
}

func (f *fixture) all(t *testing.T) []row.Row {
	t.Helper()
	res := f.engine.GetAll(context.Background(), GetAllRequest{Table: "widgets"})
	require.True(t, res.Success, "get all: %+v", res.Error)
	return res.Data
}

func (f *fixture) names(t *testing.T) []string {
	t.Helper()
	rows := f.all(t)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r["name"].(string)
	}
	return out
}

func boolPtr(b bool) *bool {
	return &b
}
