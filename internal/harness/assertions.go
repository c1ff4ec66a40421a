package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/drillstore/internal/engine"
	"github.com/roach88/drillstore/internal/history"
	"github.com/roach88/drillstore/internal/row"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		status := "ok"
		if !event.Success {
			status = event.ErrorKind
		}
		fmt.Fprintf(&buf, "  [%d] %s %s count=%d %s\n", event.Step, event.Op, event.Table, event.Count, status)
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result and the
// harness database. Returns one message per failed assertion.
func (h *Harness) EvaluateAssertions(ctx context.Context, result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceCount:
			err = assertTraceCount(result, assertion)
		case AssertFinalState:
			err = h.assertFinalState(ctx, result, assertion)
		case AssertStackDepth:
			err = h.assertStackDepth(ctx, result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertTraceCount checks that op appears exactly Count times.
func assertTraceCount(result *Result, assertion Assertion) error {
	count := result.TraceCount(assertion.Op)
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("op %s appears %d time(s)", assertion.Op, assertion.Count),
			Actual:   fmt.Sprintf("appears %d time(s)", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertFinalState finds the first row of Table matching Where and checks
// that it carries every Expect value.
func (h *Harness) assertFinalState(ctx context.Context, result *Result, assertion Assertion) error {
	res := h.engine.GetAll(ctx, engine.GetAllRequest{Table: assertion.Table})
	if !res.Success {
		return fmt.Errorf("final_state: list %s: %s", assertion.Table, res.Error.Message)
	}

	for _, r := range res.Data {
		if _, ok := matchRow(r, assertion.Where); !ok {
			continue
		}
		if col, ok := matchRow(r, assertion.Expect); !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("%s.%s = %v where %s", assertion.Table, col, assertion.Expect[col], formatWhereClause(assertion.Where)),
				Actual:   fmt.Sprintf("%v", r[col]),
				Trace:    result.Trace,
			}
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
		Actual:   "no matching row",
		Trace:    result.Trace,
	}
}

// assertStackDepth checks the number of groups held by the named stack.
func (h *Harness) assertStackDepth(ctx context.Context, result *Result, assertion Assertion) error {
	stack, err := history.ParseStack(assertion.Stack)
	if err != nil {
		return err
	}
	groups, err := h.history.Groups(ctx, h.store.DB(), stack)
	if err != nil {
		return fmt.Errorf("stack_depth: %w", err)
	}
	if len(groups) != assertion.Count {
		return &AssertionError{
			Type:     AssertStackDepth,
			Expected: fmt.Sprintf("%s stack holds %d group(s)", stack, assertion.Count),
			Actual:   fmt.Sprintf("%d group(s) %v", len(groups), groups),
			Trace:    result.Trace,
		}
	}
	return nil
}

// matchRow reports whether r carries every value in want. On mismatch it
// returns the first offending column in sorted order.
func matchRow(r row.Row, want map[string]any) (string, bool) {
	for _, col := range row.Row(want).SortedKeys() {
		actual, ok := r[col]
		if !ok || !stateValuesEqual(want[col], actual) {
			return col, false
		}
	}
	return "", true
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := row.Row(where).SortedKeys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares a scenario value with a value read from SQLite.
// YAML yields int and float64 where SQLite yields int64 and float64, and
// booleans are stored as 0/1.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case string:
		switch act := actual.(type) {
		case string:
			return exp == act
		case []byte:
			return exp == string(act)
		}
		return false
	case bool:
		switch act := actual.(type) {
		case bool:
			return exp == act
		case int64:
			return exp == (act != 0)
		}
		return false
	}

	if e, ok := numeric(expected); ok {
		a, ok := numeric(actual)
		return ok && e == a
	}

	return reflect.DeepEqual(expected, actual)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
