package engine

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies the wall-clock time used for created_at and updated_at.
//
// The engine reads the clock once per call so every row of a batch carries
// the same timestamp. Tests inject a fixed clock for reproducible rows.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// IDGenerator produces the op_id that correlates the log lines of one call.
// Implemented by UUIDGenerator (production) and testutil.SequenceIDs (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator returns time-ordered v7 UUIDs.
type UUIDGenerator struct{}

// Generate returns a new UUID string.
func (UUIDGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
