package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentGroup_EmptyHistory(t *testing.T) {
	st, m := setup(t)

	g, err := m.CurrentGroup(context.Background(), st.DB())
	require.NoError(t, err)
	assert.Equal(t, int64(0), g)
}

func TestNextGroup_StrictlyIncreasing(t *testing.T) {
	st, m := setup(t)
	ctx := context.Background()

	prev := int64(0)
	for i := 0; i < 3; i++ {
		g, err := m.NextGroup(ctx, st.DB())
		require.NoError(t, err)
		assert.Greater(t, g, prev)

		cur, err := m.CurrentGroup(ctx, st.DB())
		require.NoError(t, err)
		assert.Equal(t, g, cur)
		prev = g
	}
}

func TestCurrentGroup_FollowsLog(t *testing.T) {
	st, m := setup(t)
	ctx := context.Background()

	// A record written with a group above the counter still bounds the next group.
	_, err := st.DB().ExecContext(ctx, `
		INSERT INTO history_log (stack, history_group, sequence, table_name, row_id, op)
		VALUES ('undo', 7, 1, 'widgets', 1, 'insert')
	`)
	require.NoError(t, err)

	cur, err := m.CurrentGroup(ctx, st.DB())
	require.NoError(t, err)
	assert.Equal(t, int64(7), cur)

	next, err := m.NextGroup(ctx, st.DB())
	require.NoError(t, err)
	assert.Equal(t, int64(8), next)
}

func TestMergeLastGroupIntoPrevious(t *testing.T) {
	st, m := setup(t)
	ctx := context.Background()

	g1 := step(t, st, m, `INSERT INTO widgets (name) VALUES ('a')`)
	g2 := step(t, st, m, `INSERT INTO widgets (name) VALUES ('b')`)
	require.Less(t, g1, g2)

	merged, err := m.MergeLastGroupIntoPrevious(ctx, st.DB())
	require.NoError(t, err)
	assert.True(t, merged)

	groups, err := m.Groups(ctx, st.DB(), StackUndo)
	require.NoError(t, err)
	assert.Equal(t, []int64{g1}, groups)

	// The counter is not rewound.
	cur, err := m.CurrentGroup(ctx, st.DB())
	require.NoError(t, err)
	assert.Equal(t, g2, cur)

	// One undo reverts both inserts.
	s := undo(t, st, m)
	assert.Equal(t, 2, s.Events)
	assert.Empty(t, widgets(t, st))
}

func TestMergeLastGroupIntoPrevious_NoOp(t *testing.T) {
	st, m := setup(t)
	ctx := context.Background()

	merged, err := m.MergeLastGroupIntoPrevious(ctx, st.DB())
	require.NoError(t, err)
	assert.False(t, merged, "empty log")

	g := step(t, st, m, `INSERT INTO widgets (name) VALUES ('a')`)

	merged, err = m.MergeLastGroupIntoPrevious(ctx, st.DB())
	require.NoError(t, err)
	assert.False(t, merged, "single group")

	groups, err := m.Groups(ctx, st.DB(), StackUndo)
	require.NoError(t, err)
	assert.Equal(t, []int64{g}, groups)
}

func TestParseStack(t *testing.T) {
	s, err := ParseStack("redo")
	require.NoError(t, err)
	assert.Equal(t, StackRedo, s)

	_, err = ParseStack("sideways")
	assert.Error(t, err)
}
