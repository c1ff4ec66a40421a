package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/drillstore/internal/row"
)

// TraceSnapshot captures the trace and final state of a scenario execution.
type TraceSnapshot struct {
	ScenarioName string           `json:"scenario_name"`
	State        map[string]int64 `json:"state"`
	Trace        []TraceEvent     `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to the map form written to golden
// files. Optional event fields are omitted when empty.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"step":    int64(event.Step),
			"op":      event.Op,
			"success": event.Success,
			"count":   int64(event.Count),
		}
		if event.Table != "" {
			eventMap["table"] = event.Table
		}
		if event.ErrorKind != "" {
			eventMap["error_kind"] = event.ErrorKind
		}
		if len(event.MissingIDs) > 0 {
			ids := make([]any, len(event.MissingIDs))
			for j, id := range event.MissingIDs {
				ids[j] = id
			}
			eventMap["missing_ids"] = ids
		}
		if len(event.Rows) > 0 {
			eventMap["rows"] = event.Rows
		}
		traceList[i] = eventMap
	}

	state := make(map[string]any, len(s.State))
	for table, n := range s.State {
		state[table] = n
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"state":         state,
		"trace":         traceList,
	}
}

// Snapshot renders the canonical JSON golden form of result.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		State:        result.State,
		Trace:        result.Trace,
	}
	return row.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario could not be executed. A snapshot
// mismatch fails t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
