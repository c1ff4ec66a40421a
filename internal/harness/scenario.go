package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/drillstore/internal/engine"
	"github.com/roach88/drillstore/internal/history"
	"github.com/roach88/drillstore/internal/row"
)

// Scenario is one executable store script.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario exercises.
	Description string `yaml:"description"`

	// Compensation selects the engine strategy. Empty means transaction.
	Compensation string `yaml:"compensation,omitempty"`

	// Setup holds DDL executed before history is installed.
	Setup []string `yaml:"setup"`

	// History lists tables that get history triggers.
	History []string `yaml:"history,omitempty"`

	// Steps are executed in order. A failing step does not stop the run.
	Steps []Step `yaml:"steps"`

	// FinalState maps table names to their expected row count.
	FinalState map[string]int `yaml:"final_state,omitempty"`

	// Assertions are evaluated after every step has run.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one engine call.
type Step struct {
	Op               string    `yaml:"op"`
	Table            string    `yaml:"table,omitempty"`
	Items            []row.Row `yaml:"items,omitempty"`
	IDs              []int64   `yaml:"ids,omitempty"`
	ID               int64     `yaml:"id,omitempty"`
	IDColumn         string    `yaml:"id_column,omitempty"`
	UseNextUndoGroup *bool     `yaml:"use_next_undo_group,omitempty"`

	// Expect is checked against the call's result. Nil means the call must
	// succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the result a step must produce. Unset fields are not
// checked.
type Expect struct {
	Success    *bool   `yaml:"success,omitempty"`
	Count      *int    `yaml:"count,omitempty"`
	ErrorKind  string  `yaml:"error_kind,omitempty"`
	MissingIDs []int64 `yaml:"missing_ids,omitempty"`

	// Rows are matched by position; each entry is a subset of the returned
	// row.
	Rows []map[string]any `yaml:"rows,omitempty"`
}

// Step ops.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpGet    = "get"
	OpList   = "list"
	OpUndo   = "undo"
	OpRedo   = "redo"
)

// Assertion validates the trace or the final database.
type Assertion struct {
	// Type is final_state, trace_count or stack_depth.
	Type string `yaml:"type"`

	// Table and Where select a row for final_state; Expect is a subset of
	// that row.
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`

	// Op is the step op counted by trace_count.
	Op string `yaml:"op,omitempty"`

	// Stack is "undo" or "redo" for stack_depth.
	Stack string `yaml:"stack,omitempty"`

	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState = "final_state"
	AssertTraceCount = "trace_count"
	AssertStackDepth = "stack_depth"
)

// LoadScenario reads and validates a scenario YAML file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Setup) == 0 {
		return fmt.Errorf("setup list is required and must be non-empty")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if _, err := engine.ParseCompensation(s.Compensation); err != nil {
		return err
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("step[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion[%d]: %w", i, err)
		}
	}

	return nil
}

func validateStep(step Step) error {
	switch step.Op {
	case OpCreate, OpUpdate, OpDelete, OpGet, OpList:
		if step.Table == "" {
			return fmt.Errorf("%s requires table", step.Op)
		}
	case OpUndo, OpRedo:
		if step.Table != "" {
			return fmt.Errorf("%s takes no table", step.Op)
		}
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q (want one of %s)", step.Op, strings.Join(allOps, ", "))
	}
	return nil
}

var allOps = []string{OpCreate, OpUpdate, OpDelete, OpGet, OpList, OpUndo, OpRedo}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("final_state requires table")
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("trace_count requires op")
		}
	case AssertStackDepth:
		if _, err := history.ParseStack(a.Stack); err != nil {
			return fmt.Errorf("stack_depth: %w", err)
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
