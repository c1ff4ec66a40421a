package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/drillstore/internal/history"
	"github.com/roach88/drillstore/internal/row"
	"github.com/roach88/drillstore/internal/store"
)

// batch tracks the undo group lifecycle of one mutation call.
type batch struct {
	op      string
	table   string
	useNext bool
	log     *slog.Logger

	// validate runs before the group is opened. Nil skips pre-validation.
	validate func(q store.Querier) error
	// apply performs the writes and re-fetches. It must call markWritten
	// after every statement that changed a row.
	apply func(q store.Querier, b *batch) ([]row.Row, error)

	group  int64
	opened bool
	wrote  bool
	merged bool
}

func (b *batch) markWritten() {
	b.wrote = true
}

// execute runs b under the configured compensation strategy and always
// advances the group afterwards when b.useNext is set.
func (e *Engine) execute(ctx context.Context, b *batch) (out []row.Row, err error) {
	defer func() {
		if !b.useNext {
			return
		}
		if _, gerr := e.history.NextGroup(ctx, e.store.DB()); gerr != nil && err == nil {
			out, err = nil, NewStoreFault(b.table, fmt.Errorf("advance undo group: %w", gerr))
		}
	}()

	switch e.compensation {
	case CompensationReplay:
		return e.executeReplay(ctx, b)
	default:
		return e.executeTx(ctx, b)
	}
}

// executeTx runs the whole batch in one transaction.
func (e *Engine) executeTx(ctx context.Context, b *batch) ([]row.Row, error) {
	var out []row.Row
	err := e.store.WithTx(ctx, func(tx store.Querier) error {
		var err error
		out, err = e.runGroup(ctx, tx, b)
		return err
	})
	if err != nil {
		if b.wrote {
			b.log.Error("batch rolled back", "group", b.group, "error", err)
		}
		return nil, asStoreFault(b.table, err)
	}
	return out, nil
}

// executeReplay autocommits every statement and reverts a failed batch by
// undoing its group.
func (e *Engine) executeReplay(ctx context.Context, b *batch) ([]row.Row, error) {
	out, err := e.runGroup(ctx, e.store.DB(), b)
	if err == nil {
		return out, nil
	}
	if !b.opened || !b.wrote {
		return nil, asStoreFault(b.table, err)
	}

	if cerr := e.compensate(ctx, b); cerr != nil {
		b.log.Error("compensation failed", "group", b.group, "error", err, "compensation_error", cerr)
		return nil, asStoreFault(b.table, fmt.Errorf("%w (compensation failed: %v)", err, cerr))
	}
	b.log.Error("batch compensated", "group", b.group, "error", err)
	return nil, asStoreFault(b.table, err)
}

// compensate undoes the group b opened and drops the redo group the undo
// recorded, leaving no trace of the failed batch.
func (e *Engine) compensate(ctx context.Context, b *batch) error {
	return e.store.WithTx(ctx, func(tx store.Querier) error {
		step, err := e.history.UndoGroup(ctx, tx, b.group)
		if err != nil {
			return err
		}
		_, err = e.history.DiscardGroup(ctx, tx, history.StackRedo, step.Recorded)
		return err
	})
}

// runGroup performs validate, open, apply and fold on q.
func (e *Engine) runGroup(ctx context.Context, q store.Querier, b *batch) ([]row.Row, error) {
	if b.validate != nil {
		if err := b.validate(q); err != nil {
			return nil, err
		}
	}

	before, err := e.history.CurrentGroup(ctx, q)
	if err != nil {
		return nil, NewStoreFault(b.table, err)
	}
	group, err := e.history.NextGroup(ctx, q)
	if err != nil {
		return nil, NewStoreFault(b.table, err)
	}
	b.group = group
	b.opened = group != before

	out, err := b.apply(q, b)
	if err != nil {
		return nil, err
	}

	if !b.useNext && b.opened && b.wrote {
		// Statements that changed nothing, or tables without history
		// triggers, leave the group empty. Merging then would fold the
		// previous step instead of this one.
		n, err := e.history.GroupSize(ctx, q, history.StackUndo, b.group)
		if err != nil {
			return nil, NewStoreFault(b.table, err)
		}
		if n > 0 {
			merged, err := e.history.MergeLastGroupIntoPrevious(ctx, q)
			if err != nil {
				return nil, NewStoreFault(b.table, err)
			}
			b.merged = merged
		}
	}

	if b.wrote {
		if err := e.history.ClearRedo(ctx, q); err != nil {
			return nil, NewStoreFault(b.table, err)
		}
	}

	return out, nil
}

// asStoreFault keeps typed engine errors and wraps everything else.
func asStoreFault(table string, err error) error {
	var ee *Error
	if errors.As(err, &ee) {
		return err
	}
	return NewStoreFault(table, err)
}
