package history

import (
	"fmt"

	"github.com/roach88/drillstore/internal/store"
)

// Stack identifies which side of the history a record belongs to.
type Stack string

const (
	StackUndo Stack = "undo"
	StackRedo Stack = "redo"
)

// Valid reports whether s is a known stack.
func (s Stack) Valid() bool {
	return s == StackUndo || s == StackRedo
}

// opposite returns the stack that receives the inverse of a replay from s.
func (s Stack) opposite() Stack {
	if s == StackUndo {
		return StackRedo
	}
	return StackUndo
}

// counterColumn is the history_state column holding the group counter for s.
func (s Stack) counterColumn() string {
	if s == StackUndo {
		return "undo_group"
	}
	return "redo_group"
}

// ParseStack converts a user-supplied name to a Stack.
func ParseStack(name string) (Stack, error) {
	s := Stack(name)
	if !s.Valid() {
		return "", fmt.Errorf("invalid stack %q: must be %q or %q", name, StackUndo, StackRedo)
	}
	return s, nil
}

// Manager owns the undo group counter, the history triggers and replay.
type Manager struct {
	store *store.Store
}

// NewManager creates a Manager over st. The store supplies cached table
// schemas for trigger generation and replay.
func NewManager(st *store.Store) *Manager {
	return &Manager{store: st}
}
