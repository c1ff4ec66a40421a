package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/drillstore/internal/history"
	"github.com/roach88/drillstore/internal/store"
)

// Compensation selects how a failed batch is reverted.
type Compensation string

const (
	// CompensationTransaction runs each batch in one transaction. A failure
	// rolls back row writes, history records and group bookkeeping together.
	CompensationTransaction Compensation = "transaction"

	// CompensationReplay autocommits each statement. A failure undoes the
	// group the batch opened and discards the redo group that undo produced.
	CompensationReplay Compensation = "replay"
)

// ParseCompensation converts a configured name to a Compensation. An empty
// name selects CompensationTransaction.
func ParseCompensation(name string) (Compensation, error) {
	switch Compensation(name) {
	case "", CompensationTransaction:
		return CompensationTransaction, nil
	case CompensationReplay:
		return CompensationReplay, nil
	default:
		return "", fmt.Errorf("invalid compensation %q: must be %q or %q",
			name, CompensationTransaction, CompensationReplay)
	}
}

// Engine serialises every read and mutation of the application store.
type Engine struct {
	mu sync.Mutex

	store        *store.Store
	history      *history.Manager
	clock        Clock
	ids          IDGenerator
	logger       *slog.Logger
	compensation Compensation
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the wall clock used for timestamps.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the source of op_id values attached to log lines.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithCompensation sets the compensation strategy.
//
// Default: CompensationTransaction.
func WithCompensation(c Compensation) Option {
	return func(e *Engine) {
		e.compensation = c
	}
}

// New creates an Engine over st. The history manager owns the undo group
// counter; pass the same manager to anything else that records history on st.
func New(st *store.Store, h *history.Manager, opts ...Option) *Engine {
	e := &Engine{
		store:        st,
		history:      h,
		clock:        SystemClock{},
		ids:          UUIDGenerator{},
		logger:       slog.Default(),
		compensation: CompensationTransaction,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}
