package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/drillstore/internal/store"
)

func TestUndoRedo_RoundTrip(t *testing.T) {
	st, m := setup(t)

	step(t, st, m, `INSERT INTO widgets (name) VALUES ('a')`)
	step(t, st, m, `UPDATE widgets SET name = 'b' WHERE id = 1`)

	s := undo(t, st, m)
	assert.Equal(t, StackUndo, s.Stack)
	assert.Equal(t, int64(2), s.Group)
	assert.Equal(t, 1, s.Events)
	assert.Equal(t, []string{"widgets"}, s.Tables)
	require.Len(t, widgets(t, st), 1)
	assert.Equal(t, "a", widgets(t, st)[0]["name"])

	s = redo(t, st, m)
	assert.Equal(t, StackRedo, s.Stack)
	assert.Equal(t, "b", widgets(t, st)[0]["name"])

	undo(t, st, m)
	undo(t, st, m)
	assert.Empty(t, widgets(t, st))

	redo(t, st, m)
	got := widgets(t, st)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0]["id"], "row restored with its original id")
	assert.Equal(t, "a", got[0]["name"])

	redo(t, st, m)
	assert.Equal(t, "b", widgets(t, st)[0]["name"])
	assert.Empty(t, records(t, st, m, StackRedo))
}

func TestUndo_RestoresDeletedRow(t *testing.T) {
	st, m := setup(t)

	step(t, st, m, `INSERT INTO widgets (name, size) VALUES ('flag', 3.5)`)
	step(t, st, m, `DELETE FROM widgets WHERE id = 1`)
	require.Empty(t, widgets(t, st))

	undo(t, st, m)

	got := widgets(t, st)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0]["id"])
	assert.Equal(t, "flag", got[0]["name"])
	assert.Equal(t, 3.5, got[0]["size"])
}

func TestUndo_RowIDTable(t *testing.T) {
	st, m := setup(t)
	ctx := context.Background()

	require.NoError(t, st.Exec(ctx, `CREATE TABLE tags (label TEXT PRIMARY KEY, weight INTEGER)`))
	_, err := m.Install(ctx, st.DB(), "tags")
	require.NoError(t, err)

	step(t, st, m, `INSERT INTO tags (rowid, label, weight) VALUES (42, 'lead', 1)`)
	step(t, st, m, `DELETE FROM tags WHERE label = 'lead'`)

	undo(t, st, m)

	var rowid, weight int64
	require.NoError(t, st.DB().QueryRowContext(ctx,
		`SELECT rowid, weight FROM tags WHERE label = 'lead'`).Scan(&rowid, &weight))
	assert.Equal(t, int64(42), rowid)
	assert.Equal(t, int64(1), weight)
}

func TestUndo_ReversesEventsNewestFirst(t *testing.T) {
	st, m := setup(t)
	ctx := context.Background()

	require.NoError(t, st.WithTx(ctx, func(tx store.Querier) error {
		if _, err := m.NextGroup(ctx, tx); err != nil {
			return err
		}
		for _, stmt := range []string{
			`INSERT INTO widgets (name) VALUES ('a')`,
			`UPDATE widgets SET name = 'b' WHERE id = 1`,
			`UPDATE widgets SET name = 'c' WHERE id = 1`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}))

	s := undo(t, st, m)
	assert.Equal(t, 3, s.Events)
	assert.Empty(t, widgets(t, st))

	redo(t, st, m)
	got := widgets(t, st)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0]["name"])
}

func TestUndo_EmptyStack(t *testing.T) {
	st, m := setup(t)

	_, err := m.Undo(context.Background(), st.DB())
	assert.ErrorIs(t, err, ErrEmptyStack)

	_, err = m.Redo(context.Background(), st.DB())
	assert.ErrorIs(t, err, ErrEmptyStack)
}

func TestReplay_RestoresActiveStack(t *testing.T) {
	st, m := setup(t)
	step(t, st, m, `INSERT INTO widgets (name) VALUES ('a')`)
	undo(t, st, m)

	var active string
	require.NoError(t, st.DB().QueryRow(`SELECT active_stack FROM history_state WHERE id = 1`).Scan(&active))
	assert.Equal(t, "undo", active)

	// Writes after a replay land on the undo stack again.
	step(t, st, m, `INSERT INTO widgets (name) VALUES ('b')`)
	assert.Len(t, records(t, st, m, StackUndo), 1)
}

func TestUndoGroup_AndDiscard(t *testing.T) {
	st, m := setup(t)
	ctx := context.Background()

	step(t, st, m, `INSERT INTO widgets (name) VALUES ('keep')`)
	g := step(t, st, m, `INSERT INTO widgets (name) VALUES ('drop')`)

	var s Step
	require.NoError(t, st.WithTx(ctx, func(tx store.Querier) error {
		var err error
		if s, err = m.UndoGroup(ctx, tx, g); err != nil {
			return err
		}
		_, err = m.DiscardGroup(ctx, tx, StackRedo, s.Recorded)
		return err
	}))

	got := widgets(t, st)
	require.Len(t, got, 1)
	assert.Equal(t, "keep", got[0]["name"])
	assert.Empty(t, records(t, st, m, StackRedo))
}

func TestClearRedo(t *testing.T) {
	st, m := setup(t)
	ctx := context.Background()

	step(t, st, m, `INSERT INTO widgets (name) VALUES ('a')`)
	undo(t, st, m)
	require.NotEmpty(t, records(t, st, m, StackRedo))

	require.NoError(t, m.ClearRedo(ctx, st.DB()))
	assert.Empty(t, records(t, st, m, StackRedo))

	n, err := m.GroupSize(ctx, st.DB(), StackUndo, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
