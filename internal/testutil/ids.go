package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDs generates predictable op ids: "<prefix>-1", "<prefix>-2", ...
//
// Implements engine.IDGenerator so log output of a test run is reproducible.
//
// Thread-safety: Generate is safe for concurrent use.
type SequenceIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDs creates a generator. An empty prefix becomes "op".
func NewSequenceIDs(prefix string) *SequenceIDs {
	if prefix == "" {
		prefix = "op"
	}
	return &SequenceIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
