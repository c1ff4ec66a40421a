package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClock_DefaultsWhenZero(t *testing.T) {
	clock := NewFixedClock(time.Time{})
	assert.Equal(t, DefaultTime, clock.Now())
	assert.Equal(t, clock.Now(), clock.Now(), "frozen until advanced")
}

func TestFixedClock_Advance(t *testing.T) {
	start := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFixedClock(start)

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, start.Add(1500*time.Millisecond), clock.Now())

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, start.Add(2*time.Second), clock.Now())
}

func TestSequenceIDs(t *testing.T) {
	g := NewSequenceIDs("")
	assert.Equal(t, "op-1", g.Generate())
	assert.Equal(t, "op-2", g.Generate())

	g = NewSequenceIDs("scenario")
	assert.Equal(t, "scenario-1", g.Generate())
}

func TestSequenceIDs_ThreadSafe(t *testing.T) {
	g := NewSequenceIDs("x")
	const n = 50

	seen := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- g.Generate()
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[string]bool{}
	for id := range seen {
		unique[id] = true
	}
	assert.Len(t, unique, n)
}
