package history

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/drillstore/internal/store"
)

func TestInstall_RecordsInsert(t *testing.T) {
	st, m := setup(t)

	g := step(t, st, m, `INSERT INTO widgets (name) VALUES ('flag')`)

	recs := records(t, st, m, StackUndo)
	require.Len(t, recs, 1)
	assert.Equal(t, g, recs[0].Group)
	assert.Equal(t, OpInsert, recs[0].Op)
	assert.Equal(t, "widgets", recs[0].Table)
	assert.Equal(t, int64(1), recs[0].RowID)
	assert.Empty(t, recs[0].Column)
	assert.Nil(t, recs[0].PriorValue)
}

func TestInstall_RecordsOnlyChangedColumns(t *testing.T) {
	st, m := setup(t)
	step(t, st, m, `INSERT INTO widgets (name, size) VALUES ('flag', 2.0)`)
	g := step(t, st, m, `UPDATE widgets SET name = 'rifle', size = 2.0 WHERE id = 1`)

	var updates []Record
	for _, r := range records(t, st, m, StackUndo) {
		if r.Group == g {
			updates = append(updates, r)
		}
	}
	require.Len(t, updates, 1)
	assert.Equal(t, OpUpdate, updates[0].Op)
	assert.Equal(t, "name", updates[0].Column)
	assert.Equal(t, "flag", updates[0].PriorValue)
}

func TestInstall_RecordsEveryColumnOnDelete(t *testing.T) {
	st, m := setup(t)
	step(t, st, m, `INSERT INTO widgets (name) VALUES ('flag')`)
	g := step(t, st, m, `DELETE FROM widgets WHERE id = 1`)

	prior := map[string]any{}
	var seq int64
	for _, r := range records(t, st, m, StackUndo) {
		if r.Group != g {
			continue
		}
		assert.Equal(t, OpDelete, r.Op)
		if seq == 0 {
			seq = r.Sequence
		}
		assert.Equal(t, seq, r.Sequence, "one event shares a sequence")
		prior[r.Column] = r.PriorValue
	}
	assert.Equal(t, map[string]any{"id": int64(1), "name": "flag", "size": 1.0}, prior)
}

func TestInstall_RefusesInternalTables(t *testing.T) {
	st, m := setup(t)

	for _, table := range []string{"history_log", "history_state", "sqlite_sequence", "goose_db_version"} {
		_, err := m.Install(context.Background(), st.DB(), table)
		assert.True(t, errors.Is(err, ErrInternalTable), table)
	}
}

func TestInstall_UnknownTable(t *testing.T) {
	st, m := setup(t)

	_, err := m.Install(context.Background(), st.DB(), "ghosts")
	assert.ErrorIs(t, err, store.ErrUnknownTable)
}

func TestInstall_ReinstallPicksUpNewColumns(t *testing.T) {
	st, m := setup(t)
	ctx := context.Background()

	require.NoError(t, st.Exec(ctx, `ALTER TABLE widgets ADD COLUMN color TEXT`))
	ts, err := m.Install(ctx, st.DB(), "widgets")
	require.NoError(t, err)
	assert.True(t, ts.HasColumn("color"))

	step(t, st, m, `INSERT INTO widgets (name, color) VALUES ('flag', 'red')`)
	g := step(t, st, m, `UPDATE widgets SET color = 'blue' WHERE id = 1`)

	var cols []string
	for _, r := range records(t, st, m, StackUndo) {
		if r.Group == g {
			cols = append(cols, r.Column)
		}
	}
	assert.Equal(t, []string{"color"}, cols)
}

func TestTriggerSQL_QuotesIdentifiers(t *testing.T) {
	ts := store.TableSchema{
		Name:    `odd"table`,
		Columns: []store.Column{{Name: "it's"}},
	}
	sql := triggerSQL(ts, "update")
	assert.True(t, strings.Contains(sql, `ON "odd""table"`), sql)
	assert.True(t, strings.Contains(sql, `'it''s'`), sql)
	assert.True(t, strings.Contains(sql, `OLD."it's" IS NOT NEW."it's"`), sql)
}
