package harness

import "github.com/roach88/drillstore/internal/row"

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Step       int       `json:"step"` // 1-based
	Op         string    `json:"op"`
	Table      string    `json:"table,omitempty"`
	Success    bool      `json:"success"`
	Count      int       `json:"count"` // rows returned, or events replayed for undo/redo
	ErrorKind  string    `json:"error_kind,omitempty"`
	MissingIDs []int64   `json:"missing_ids,omitempty"`
	Rows       []row.Row `json:"rows,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State maps every table named by the scenario to its final row count.
	State map[string]int64 `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]int64),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}

// TraceCount returns how many trace events carry op.
func (r *Result) TraceCount(op string) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Op == op {
			n++
		}
	}
	return n
}
