package harness

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/roach88/drillstore/internal/engine"
	"github.com/roach88/drillstore/internal/history"
	"github.com/roach88/drillstore/internal/logging"
	"github.com/roach88/drillstore/internal/row"
	"github.com/roach88/drillstore/internal/store"
	"github.com/roach88/drillstore/internal/testutil"
)

// Harness executes one scenario against its own store.
type Harness struct {
	store   *store.Store
	history *history.Manager
	engine  *engine.Engine
	clock   *testutil.FixedClock
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. Execution flow:
//  1. run the setup DDL
//  2. install history on the listed tables
//  3. execute every step, checking its expect clause
//  4. record final row counts and check final_state
//  5. evaluate assertions
//
// A returned error means the scenario could not be executed at all; step and
// assertion failures are reported through Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	mode, err := engine.ParseCompensation(scenario.Compensation)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock := testutil.NewFixedClock(testutil.DefaultTime)
	hm := history.NewManager(st)
	h := &Harness{
		store:   st,
		history: hm,
		clock:   clock,
		engine: engine.New(st, hm,
			engine.WithClock(clock),
			engine.WithIDGenerator(testutil.NewSequenceIDs(scenario.Name)),
			engine.WithLogger(logging.Discard()),
			engine.WithCompensation(mode),
		),
	}

	ctx := context.Background()

	for i, ddl := range scenario.Setup {
		if err := st.Exec(ctx, ddl); err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	for _, table := range scenario.History {
		res := h.engine.InstallHistory(ctx, table)
		if !res.Success {
			return nil, fmt.Errorf("install history on %q: %s", table, res.Error.Message)
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		event := h.executeStep(ctx, i+1, step)
		result.AddTrace(event)
		h.clock.Advance(time.Second)
		for _, msg := range checkExpect(event, step.Expect) {
			result.AddError(fmt.Sprintf("step %d (%s): %s", event.Step, event.Op, msg))
		}
	}

	if err := h.collectState(ctx, scenario, result); err != nil {
		return nil, err
	}

	for _, table := range sortedKeys(scenario.FinalState) {
		want := int64(scenario.FinalState[table])
		if got := result.State[table]; got != want {
			result.AddError(fmt.Sprintf("final_state: table %s has %d row(s), expected %d", table, got, want))
		}
	}

	for _, msg := range h.EvaluateAssertions(ctx, result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// executeStep performs one engine call and converts its Result to a trace
// event.
func (h *Harness) executeStep(ctx context.Context, n int, step Step) TraceEvent {
	event := TraceEvent{Step: n, Op: step.Op, Table: step.Table}

	switch step.Op {
	case OpCreate:
		res := h.engine.CreateMany(ctx, engine.CreateManyRequest{
			Table:            step.Table,
			Items:            step.Items,
			UseNextUndoGroup: step.UseNextUndoGroup,
		})
		recordRows(&event, res.Success, res.Data, res.Error)
	case OpUpdate:
		res := h.engine.UpdateMany(ctx, engine.UpdateManyRequest{
			Table:            step.Table,
			Items:            step.Items,
			UseNextUndoGroup: step.UseNextUndoGroup,
		})
		recordRows(&event, res.Success, res.Data, res.Error)
	case OpDelete:
		res := h.engine.DeleteMany(ctx, engine.DeleteManyRequest{
			Table:            step.Table,
			IDs:              step.IDs,
			IDColumn:         step.IDColumn,
			UseNextUndoGroup: step.UseNextUndoGroup,
		})
		recordRows(&event, res.Success, res.Data, res.Error)
	case OpGet:
		res := h.engine.GetOne(ctx, engine.GetOneRequest{
			Table:    step.Table,
			ID:       step.ID,
			IDColumn: step.IDColumn,
		})
		var rows []row.Row
		if res.Success {
			rows = []row.Row{res.Data}
		}
		recordRows(&event, res.Success, rows, res.Error)
	case OpList:
		res := h.engine.GetAll(ctx, engine.GetAllRequest{Table: step.Table})
		recordRows(&event, res.Success, res.Data, res.Error)
	case OpUndo:
		recordStep(&event, h.engine.Undo(ctx))
	case OpRedo:
		recordStep(&event, h.engine.Redo(ctx))
	}

	return event
}

func recordRows(event *TraceEvent, ok bool, rows []row.Row, info *engine.ErrorInfo) {
	event.Success = ok
	if !ok {
		recordError(event, info)
		return
	}
	event.Count = len(rows)
	if len(rows) > 0 {
		event.Rows = rows
	}
}

func recordStep(event *TraceEvent, res engine.Result[history.Step]) {
	event.Success = res.Success
	if !res.Success {
		recordError(event, res.Error)
		return
	}
	event.Count = res.Data.Events
}

func recordError(event *TraceEvent, info *engine.ErrorInfo) {
	if info == nil {
		return
	}
	event.ErrorKind = string(info.Kind)
	event.MissingIDs = info.MissingIDs
}

// checkExpect compares a trace event with its expect clause. A nil clause
// requires success.
func checkExpect(event TraceEvent, expect *Expect) []string {
	if expect == nil {
		if !event.Success {
			return []string{fmt.Sprintf("expected success, got %s", event.ErrorKind)}
		}
		return nil
	}

	var errs []string

	wantSuccess := expect.ErrorKind == ""
	if expect.Success != nil {
		wantSuccess = *expect.Success
	}
	if event.Success != wantSuccess {
		errs = append(errs, fmt.Sprintf("success = %v, expected %v", event.Success, wantSuccess))
	}

	if expect.Count != nil && event.Count != *expect.Count {
		errs = append(errs, fmt.Sprintf("count = %d, expected %d", event.Count, *expect.Count))
	}

	if expect.ErrorKind != "" && event.ErrorKind != expect.ErrorKind {
		errs = append(errs, fmt.Sprintf("error_kind = %q, expected %q", event.ErrorKind, expect.ErrorKind))
	}

	if expect.MissingIDs != nil && !slices.Equal(event.MissingIDs, expect.MissingIDs) {
		errs = append(errs, fmt.Sprintf("missing_ids = %v, expected %v", event.MissingIDs, expect.MissingIDs))
	}

	if len(expect.Rows) > len(event.Rows) {
		errs = append(errs, fmt.Sprintf("returned %d row(s), expected at least %d", len(event.Rows), len(expect.Rows)))
		return errs
	}
	for i, want := range expect.Rows {
		if col, ok := matchRow(event.Rows[i], want); !ok {
			errs = append(errs, fmt.Sprintf("rows[%d].%s = %v, expected %v", i, col, event.Rows[i][col], want[col]))
		}
	}

	return errs
}

// collectState records the row count of every table the scenario names.
func (h *Harness) collectState(ctx context.Context, scenario *Scenario, result *Result) error {
	tables := make(map[string]bool)
	for _, t := range scenario.History {
		tables[t] = true
	}
	for t := range scenario.FinalState {
		tables[t] = true
	}
	for _, step := range scenario.Steps {
		if step.Table != "" {
			tables[step.Table] = true
		}
	}

	for _, table := range sortedKeys(tables) {
		cols, err := store.Columns(ctx, h.store.DB(), table)
		if err != nil {
			return fmt.Errorf("final state: %w", err)
		}
		if len(cols) == 0 {
			// Steps may name tables that were never created.
			result.State[table] = 0
			continue
		}
		ts, err := h.store.Schema(ctx, h.store.DB(), table)
		if err != nil {
			return fmt.Errorf("final state: %w", err)
		}
		n, err := store.CountRows(ctx, h.store.DB(), ts)
		if err != nil {
			return fmt.Errorf("final state: %w", err)
		}
		result.State[table] = n
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
