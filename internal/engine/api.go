package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/roach88/drillstore/internal/history"
	"github.com/roach88/drillstore/internal/row"
	"github.com/roach88/drillstore/internal/store"
)

// GetOneRequest names a single row. IDColumn defaults to rowid.
type GetOneRequest struct {
	Table    string `json:"table" yaml:"table"`
	ID       int64  `json:"id" yaml:"id"`
	IDColumn string `json:"id_column,omitempty" yaml:"id_column,omitempty"`
}

// GetAllRequest names a table to list.
type GetAllRequest struct {
	Table string `json:"table" yaml:"table"`
}

// CreateManyRequest inserts Items into Table. Caller-supplied ids are
// ignored. UseNextUndoGroup defaults to true; false folds the batch into the
// previous undo step.
type CreateManyRequest struct {
	Table            string    `json:"table" yaml:"table"`
	Items            []row.Row `json:"items" yaml:"items"`
	UseNextUndoGroup *bool     `json:"use_next_undo_group,omitempty" yaml:"use_next_undo_group,omitempty"`
}

// UpdateManyRequest applies Items to existing rows of Table. Each item names
// its row by the table's id column, or "id".
type UpdateManyRequest struct {
	Table            string    `json:"table" yaml:"table"`
	Items            []row.Row `json:"items" yaml:"items"`
	UseNextUndoGroup *bool     `json:"use_next_undo_group,omitempty" yaml:"use_next_undo_group,omitempty"`
}

// DeleteManyRequest removes the rows of Table whose IDColumn (default rowid)
// matches one of IDs.
type DeleteManyRequest struct {
	Table            string  `json:"table" yaml:"table"`
	IDs              []int64 `json:"ids" yaml:"ids"`
	IDColumn         string  `json:"id_column,omitempty" yaml:"id_column,omitempty"`
	UseNextUndoGroup *bool   `json:"use_next_undo_group,omitempty" yaml:"use_next_undo_group,omitempty"`
}

// GetOne returns the row of req.Table whose id column equals req.ID.
func (e *Engine) GetOne(ctx context.Context, req GetOneRequest) Result[row.Row] {
	return call(e, ctx, "get_one", row.Row(nil), func(ctx context.Context, log *slog.Logger) (row.Row, error) {
		ts, err := e.tableSchema(ctx, req.Table)
		if err != nil {
			return nil, err
		}
		col, err := ts.ResolveIDColumn(req.IDColumn)
		if err != nil {
			return nil, NewInvalidRequest(ts.Name, err)
		}
		r, err := store.GetRow(ctx, e.store.DB(), ts, col, req.ID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFoundError(ts.Name, []int64{req.ID})
		}
		if err != nil {
			return nil, NewStoreFault(ts.Name, err)
		}
		return r, nil
	})
}

// GetAll returns every row of req.Table ordered by row id.
func (e *Engine) GetAll(ctx context.Context, req GetAllRequest) Result[[]row.Row] {
	return call(e, ctx, "get_all", []row.Row{}, func(ctx context.Context, log *slog.Logger) ([]row.Row, error) {
		ts, err := e.tableSchema(ctx, req.Table)
		if err != nil {
			return nil, err
		}
		rows, err := store.AllRows(ctx, e.store.DB(), ts)
		if err != nil {
			return nil, NewStoreFault(ts.Name, err)
		}
		return rows, nil
	})
}

// CreateMany inserts req.Items as one undo step and returns the stored rows
// in item order.
func (e *Engine) CreateMany(ctx context.Context, req CreateManyRequest) Result[[]row.Row] {
	return call(e, ctx, "create_many", []row.Row{}, func(ctx context.Context, log *slog.Logger) ([]row.Row, error) {
		return e.createMany(ctx, log, req)
	})
}

// UpdateMany applies req.Items as one undo step and returns the updated rows.
func (e *Engine) UpdateMany(ctx context.Context, req UpdateManyRequest) Result[[]row.Row] {
	return call(e, ctx, "update_many", []row.Row{}, func(ctx context.Context, log *slog.Logger) ([]row.Row, error) {
		return e.updateMany(ctx, log, req)
	})
}

// DeleteMany removes the named rows as one undo step and returns them as
// they were before removal.
func (e *Engine) DeleteMany(ctx context.Context, req DeleteManyRequest) Result[[]row.Row] {
	return call(e, ctx, "delete_many", []row.Row{}, func(ctx context.Context, log *slog.Logger) ([]row.Row, error) {
		return e.deleteMany(ctx, log, req)
	})
}

// Undo reverts the newest undo step. An empty undo stack succeeds with a
// zero-event Step.
func (e *Engine) Undo(ctx context.Context) Result[history.Step] {
	return call(e, ctx, "undo", emptyStep(history.StackUndo), func(ctx context.Context, log *slog.Logger) (history.Step, error) {
		return e.replay(ctx, log, history.StackUndo)
	})
}

// Redo reapplies the newest undone step. An empty redo stack succeeds with a
// zero-event Step.
func (e *Engine) Redo(ctx context.Context) Result[history.Step] {
	return call(e, ctx, "redo", emptyStep(history.StackRedo), func(ctx context.Context, log *slog.Logger) (history.Step, error) {
		return e.replay(ctx, log, history.StackRedo)
	})
}

// InstallHistory (re)creates the history triggers of table.
func (e *Engine) InstallHistory(ctx context.Context, table string) Result[store.TableSchema] {
	return call(e, ctx, "install_history", store.TableSchema{}, func(ctx context.Context, log *slog.Logger) (store.TableSchema, error) {
		var ts store.TableSchema
		err := e.store.WithTx(ctx, func(tx store.Querier) error {
			var err error
			ts, err = e.history.Install(ctx, tx, table)
			return err
		})
		if errors.Is(err, history.ErrInternalTable) || errors.Is(err, store.ErrUnknownTable) {
			return store.TableSchema{}, NewInvalidRequest(table, err)
		}
		if err != nil {
			return store.TableSchema{}, NewStoreFault(table, err)
		}
		log.Info("history installed", "table", table, "columns", ts.ColumnNames(), "id_column", ts.IDColumn)
		return ts, nil
	})
}

// History lists the recorded history of stack, or of both stacks when stack
// is empty.
func (e *Engine) History(ctx context.Context, stack history.Stack) Result[[]history.Record] {
	return call(e, ctx, "history", []history.Record{}, func(ctx context.Context, log *slog.Logger) ([]history.Record, error) {
		if stack != "" && !stack.Valid() {
			return nil, NewInvalidRequest("", fmt.Errorf("invalid stack %q", stack))
		}
		recs, err := e.history.Records(ctx, e.store.DB(), stack)
		if err != nil {
			return nil, NewStoreFault("", err)
		}
		return recs, nil
	})
}

func (e *Engine) replay(ctx context.Context, log *slog.Logger, from history.Stack) (history.Step, error) {
	var step history.Step
	err := e.store.WithTx(ctx, func(tx store.Querier) error {
		var err error
		if from == history.StackUndo {
			step, err = e.history.Undo(ctx, tx)
		} else {
			step, err = e.history.Redo(ctx, tx)
		}
		return err
	})
	if errors.Is(err, history.ErrEmptyStack) {
		log.Debug("nothing to replay", "stack", from)
		return emptyStep(from), nil
	}
	if err != nil {
		return history.Step{}, NewStoreFault("", err)
	}
	log.Info("history replayed", "stack", from, "group", step.Group, "events", step.Events, "tables", step.Tables)
	return step, nil
}

func emptyStep(stack history.Stack) history.Step {
	return history.Step{Stack: stack, Tables: []string{}}
}

// call serialises fn behind the engine mutex, tags its log lines with an
// op_id, and converts errors and panics into a Result.
func call[T any](e *Engine, ctx context.Context, op string, neutral T, fn func(context.Context, *slog.Logger) (T, error)) (res Result[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.logger.With("op", op, "op_id", e.ids.Generate())

	defer func() {
		if p := recover(); p != nil {
			log.Error("panic recovered", "panic", p)
			res = Result[T]{
				Success: false,
				Data:    neutral,
				Error: &ErrorInfo{
					Kind:    KindStoreFault,
					Message: fmt.Sprintf("panic: %v", p),
					Stack:   string(debug.Stack()),
				},
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		return failWith(neutral, NewStoreFault("", err))
	}

	data, err := fn(ctx, log)
	if err != nil {
		switch KindOf(err) {
		case KindNotFound, KindInvalidRequest:
			log.Warn("operation failed", "kind", KindOf(err), "error", err)
		default:
			log.Error("operation failed", "kind", KindOf(err), "error", err)
		}
		return failWith(neutral, err)
	}
	return succeed(data)
}
