package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/drillstore/internal/engine"
	"github.com/roach88/drillstore/internal/history"
	"github.com/roach88/drillstore/internal/row"
	"github.com/roach88/drillstore/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation or scenario failure (NotFound, StoreFault, failed scenarios)
	ExitCommandError = 2 // Command error (bad flags, unreadable config, database cannot be opened)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // engine error kind, or E_* for command errors
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	return writeText(f.Writer, data)
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// writeResult prints an engine Result. A failed Result is printed and then
// returned as an ExitFailure error.
func writeResult[T any](f *OutputFormatter, res engine.Result[T]) error {
	if res.Success {
		return f.Success(res.Data)
	}

	var details any
	if len(res.Error.MissingIDs) > 0 {
		details = map[string]any{"missing_ids": res.Error.MissingIDs}
	}
	if err := f.Error(string(res.Error.Kind), res.Error.Message, details); err != nil {
		return err
	}
	return NewExitError(ExitFailure, res.Error.Message)
}

// writeText renders the payloads produced by drillstore commands. Rows are
// printed as canonical JSON, one per line.
func writeText(w io.Writer, data any) error {
	switch v := data.(type) {
	case row.Row:
		return writeRows(w, []row.Row{v})
	case []row.Row:
		if len(v) == 0 {
			fmt.Fprintln(w, "(no rows)")
			return nil
		}
		return writeRows(w, v)
	case history.Step:
		if v.Events == 0 {
			fmt.Fprintf(w, "nothing to %s\n", stepVerb(v.Stack))
			return nil
		}
		fmt.Fprintf(w, "%s group %d: %d event(s) on %s\n",
			stepVerb(v.Stack), v.Group, v.Events, strings.Join(v.Tables, ", "))
	case []history.Record:
		if len(v) == 0 {
			fmt.Fprintln(w, "(no history)")
			return nil
		}
		for _, r := range v {
			fmt.Fprintf(w, "%-4s group=%d seq=%d %s[%d] %s", r.Stack, r.Group, r.Sequence, r.Table, r.RowID, r.Op)
			if r.Column != "" {
				fmt.Fprintf(w, " %s=%v", r.Column, r.PriorValue)
			}
			fmt.Fprintln(w)
		}
	case store.TableSchema:
		writeSchema(w, v)
	case []store.TableSchema:
		for _, ts := range v {
			writeSchema(w, ts)
		}
	default:
		fmt.Fprintln(w, data)
	}
	return nil
}

func writeRows(w io.Writer, rows []row.Row) error {
	for _, r := range rows {
		data, err := row.MarshalCanonical(r)
		if err != nil {
			return fmt.Errorf("render row: %w", err)
		}
		fmt.Fprintln(w, string(data))
	}
	return nil
}

func writeSchema(w io.Writer, ts store.TableSchema) {
	fmt.Fprintf(w, "history installed on %s (id column %s): %s\n", ts.Name, ts.IDColumn, strings.Join(ts.ColumnNames(), ", "))
}

func stepVerb(s history.Stack) string {
	if s == history.StackRedo {
		return "redo"
	}
	return "undo"
}
