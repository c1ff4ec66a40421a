package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/drillstore/internal/row"
)

func TestStateValuesEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		want     bool
	}{
		{"both nil", nil, nil, true},
		{"nil vs value", nil, int64(1), false},
		{"yaml int vs int64", 3, int64(3), true},
		{"yaml int vs float", 2, 2.0, true},
		{"float vs float", 2.5, 2.5, true},
		{"int mismatch", 3, int64(4), false},
		{"string", "flag", "flag", true},
		{"string vs blob", "flag", []byte("flag"), true},
		{"string vs int", "1", int64(1), false},
		{"bool vs stored int", true, int64(1), true},
		{"bool vs stored zero", true, int64(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateValuesEqual(tt.expected, tt.actual))
		})
	}
}

func TestMatchRow(t *testing.T) {
	r := row.Row{"id": int64(1), "name": "flag", "size": 1.5}

	_, ok := matchRow(r, map[string]any{"id": 1, "name": "flag"})
	assert.True(t, ok)

	_, ok = matchRow(r, nil)
	assert.True(t, ok)

	col, ok := matchRow(r, map[string]any{"name": "rifle", "size": 1.5})
	assert.False(t, ok)
	assert.Equal(t, "name", col)

	col, ok = matchRow(r, map[string]any{"color": "red"})
	assert.False(t, ok)
	assert.Equal(t, "color", col)
}

func TestFormatWhereClause(t *testing.T) {
	assert.Equal(t, "(no conditions)", formatWhereClause(nil))
	assert.Equal(t, "id=1 AND name=flag", formatWhereClause(map[string]any{"name": "flag", "id": 1}))
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	scenario := widgetsScenario(
		Step{Op: OpCreate, Table: "widgets", Items: []row.Row{{"name": "flag"}}},
	)
	scenario.Assertions = []Assertion{
		{Type: AssertFinalState, Table: "widgets", Where: map[string]any{"id": 1}, Expect: map[string]any{"name": "rifle"}},
		{Type: AssertFinalState, Table: "widgets", Where: map[string]any{"id": 2}},
		{Type: AssertTraceCount, Op: OpCreate, Count: 2},
		{Type: AssertStackDepth, Stack: "undo", Count: 0},
		{Type: AssertFinalState, Table: "widgets", Where: map[string]any{"id": 1}, Expect: map[string]any{"name": "flag"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "Expected: widgets.name = rifle where id=1")
	assert.Contains(t, result.Errors[0], "Actual: flag")
	assert.Contains(t, result.Errors[1], "no matching row")
	assert.Contains(t, result.Errors[2], "op create appears 2 time(s)")
	assert.Contains(t, result.Errors[3], "undo stack holds 0 group(s)")
	assert.Contains(t, result.Errors[3], "[1] create widgets count=1 ok")
}
