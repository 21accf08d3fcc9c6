package testutil

import (
	"fmt"
	"sync"
	"time"
)

// Epoch is the first instant returned by a StepClock.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// StepClock is a deterministic clock for store tests. Every call to Now
// advances it by one second from Epoch.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	steps int64
}

// NewStepClock creates a clock whose first Now() returns Epoch.
func NewStepClock() *StepClock {
	return &StepClock{}
}

// Now returns the next instant.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.steps) * time.Second)
	c.steps++
	return t
}

// Reset rewinds the clock so the next Now() returns Epoch.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = 0
}

// SequentialIDs hands out predictable record identifiers, formatted like
// UUIDs so they sort in issue order.
type SequentialIDs struct {
	mu sync.Mutex
	n  int
}

// NewID returns the next identifier.
func (g *SequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return formatSequentialID(g.n)
}

func formatSequentialID(n int) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}
