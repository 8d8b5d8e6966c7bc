package clock

import (
	"sync"
	"time"
)

// Fake is a test Clock. Time only moves when Sleep or Advance is called, or
// by Step on every Now call.
type Fake struct {
	mu     sync.Mutex
	now    Ticks
	step   Ticks
	sleeps []time.Duration
}

// NewFake creates a Fake starting at the given counter value.
func NewFake(start Ticks) *Fake {
	return &Fake{now: start}
}

// SetStep makes every Now call advance the counter by d after reading it.
func (f *Fake) SetStep(d time.Duration) {
	f.mu.Lock()
	f.step = TicksFor(d)
	f.mu.Unlock()
}

// Now returns the current counter value.
func (f *Fake) Now() Ticks {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.now
	f.now += f.step
	return t
}

// Peek returns the counter without applying Step.
func (f *Fake) Peek() Ticks {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Sleep records d and advances the counter by it.
func (f *Fake) Sleep(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps = append(f.sleeps, d)
	if d > 0 {
		f.now += TicksFor(d)
	}
}

// Advance moves the counter forward without recording a sleep.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now += TicksFor(d)
	f.mu.Unlock()
}

// Sleeps returns a copy of every duration passed to Sleep.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}

// Slept returns the sum of every duration passed to Sleep.
func (f *Fake) Slept() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total time.Duration
	for _, d := range f.sleeps {
		total += d
	}
	return total
}
