package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/drillstore/internal/row"
)

func TestInsertAndGetRow(t *testing.T) {
	s := createTestStore(t)
	createWidgets(t, s)
	ctx := context.Background()

	ts, err := s.Schema(ctx, s.DB(), "widgets")
	require.NoError(t, err)

	id, err := InsertRow(ctx, s.DB(), ts, row.Row{"name": "flag"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	got, err := GetRow(ctx, s.DB(), ts, "", id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got["id"])
	assert.Equal(t, "flag", got["name"])
	assert.Equal(t, 1.0, got["size"]) // column default
	assert.Nil(t, got["created_at"])
}

func TestInsertRow_DefaultValues(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Exec(ctx, `CREATE TABLE pages (id INTEGER PRIMARY KEY, counts INTEGER DEFAULT 8)`))

	ts, err := s.Schema(ctx, s.DB(), "pages")
	require.NoError(t, err)

	id, err := InsertRow(ctx, s.DB(), ts, row.Row{})
	require.NoError(t, err)

	got, err := GetRow(ctx, s.DB(), ts, "id", id)
	require.NoError(t, err)
	assert.Equal(t, int64(8), got["counts"])
}

func TestGetRow_NotFound(t *testing.T) {
	s := createTestStore(t)
	createWidgets(t, s)
	ctx := context.Background()

	ts, err := s.Schema(ctx, s.DB(), "widgets")
	require.NoError(t, err)

	_, err = GetRow(ctx, s.DB(), ts, "", 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetRow_RowIDTablesCarryRowID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Exec(ctx, `CREATE TABLE tags (code TEXT PRIMARY KEY, label TEXT)`))

	ts, err := s.Schema(ctx, s.DB(), "tags")
	require.NoError(t, err)

	id, err := InsertRow(ctx, s.DB(), ts, row.Row{"code": "A", "label": "alpha"})
	require.NoError(t, err)

	got, err := GetRow(ctx, s.DB(), ts, RowIDColumn, id)
	require.NoError(t, err)
	assert.Equal(t, id, got[RowIDColumn])
	assert.Equal(t, "A", got["code"])
}

func TestFindRows_ReturnsEveryMatch(t *testing.T) {
	s := createTestStore(t)
	createWidgets(t, s)
	ctx := context.Background()

	ts, err := s.Schema(ctx, s.DB(), "widgets")
	require.NoError(t, err)

	for _, r := range []row.Row{{"name": "a", "size": 2}, {"name": "b", "size": 3}, {"name": "c", "size": 2}} {
		_, err := InsertRow(ctx, s.DB(), ts, r)
		require.NoError(t, err)
	}

	found, err := FindRows(ctx, s.DB(), ts, "size", 2)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "a", found[0]["name"])
	assert.Equal(t, "c", found[1]["name"])

	found, err = FindRows(ctx, s.DB(), ts, "size", 9)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Empty(t, found)

	_, err = FindRows(ctx, s.DB(), ts, "bogus", 1)
	require.Error(t, err)
}

func TestUpdateRow(t *testing.T) {
	s := createTestStore(t)
	createWidgets(t, s)
	ctx := context.Background()

	ts, err := s.Schema(ctx, s.DB(), "widgets")
	require.NoError(t, err)

	id, err := InsertRow(ctx, s.DB(), ts, row.Row{"name": "flag"})
	require.NoError(t, err)

	n, err := UpdateRow(ctx, s.DB(), ts, "id", id, row.Row{"name": "rifle", "size": 2.5})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := GetRow(ctx, s.DB(), ts, "id", id)
	require.NoError(t, err)
	assert.Equal(t, "rifle", got["name"])
	assert.Equal(t, 2.5, got["size"])

	n, err = UpdateRow(ctx, s.DB(), ts, "id", id, row.Row{})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = UpdateRow(ctx, s.DB(), ts, "id", 999, row.Row{"name": "x"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateRow_UnknownColumn(t *testing.T) {
	s := createTestStore(t)
	createWidgets(t, s)
	ctx := context.Background()

	ts, err := s.Schema(ctx, s.DB(), "widgets")
	require.NoError(t, err)

	id, err := InsertRow(ctx, s.DB(), ts, row.Row{"name": "flag"})
	require.NoError(t, err)

	_, err = UpdateRow(ctx, s.DB(), ts, "id", id, row.Row{"bogus": 1})
	require.Error(t, err)
}

func TestDeleteRow(t *testing.T) {
	s := createTestStore(t)
	createWidgets(t, s)
	ctx := context.Background()

	ts, err := s.Schema(ctx, s.DB(), "widgets")
	require.NoError(t, err)

	id, err := InsertRow(ctx, s.DB(), ts, row.Row{"name": "flag"})
	require.NoError(t, err)

	n, err := DeleteRow(ctx, s.DB(), ts, "", id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := CountRows(ctx, s.DB(), ts)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAllRows_OrderedAndNeverNil(t *testing.T) {
	s := createTestStore(t)
	createWidgets(t, s)
	ctx := context.Background()

	ts, err := s.Schema(ctx, s.DB(), "widgets")
	require.NoError(t, err)

	rows, err := AllRows(ctx, s.DB(), ts)
	require.NoError(t, err)
	require.NotNil(t, rows)
	assert.Empty(t, rows)

	for _, name := range []string{"c", "a", "b"} {
		_, err := InsertRow(ctx, s.DB(), ts, row.Row{"name": name})
		require.NoError(t, err)
	}

	rows, err = AllRows(ctx, s.DB(), ts)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, int64(i+1), r["id"])
	}
}
