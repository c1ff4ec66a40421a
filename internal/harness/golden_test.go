package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/drillstore/internal/row"
)

func TestSnapshot_CanonicalForm(t *testing.T) {
	result := NewResult()
	result.State["widgets"] = 1
	result.AddTrace(TraceEvent{
		Step: 1, Op: OpCreate, Table: "widgets", Success: true, Count: 1,
		Rows: []row.Row{{"name": "<flag>", "id": int64(1)}},
	})
	result.AddTrace(TraceEvent{
		Step: 2, Op: OpDelete, Table: "widgets", ErrorKind: "NotFound", MissingIDs: []int64{9},
	})
	result.AddTrace(TraceEvent{Step: 3, Op: OpUndo, Success: true})

	data, err := Snapshot("snap", result)
	require.NoError(t, err)

	want := `{"scenario_name":"snap","state":{"widgets":1},"trace":[` +
		`{"count":1,"op":"create","rows":[{"id":1,"name":"<flag>"}],"step":1,"success":true,"table":"widgets"},` +
		`{"count":0,"error_kind":"NotFound","missing_ids":[9],"op":"delete","step":2,"success":false,"table":"widgets"},` +
		`{"count":0,"op":"undo","step":3,"success":true}]}`
	assert.Equal(t, want, string(data))
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "widgets_undo.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRunWithGolden_WidgetsFold(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "widgets_fold.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
