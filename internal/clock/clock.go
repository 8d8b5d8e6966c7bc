// Package clock models the free-running, wrapping tick counter the control
// loop measures time against, and the blocking sleep primitive built on it.
package clock

import "time"

// Ticks is a free-running counter value in microseconds. It wraps modulo 2^32
// (about 71.6 minutes), so two values may only be compared by difference.
type Ticks uint32

// Resolution is the duration of one tick.
const Resolution = time.Microsecond

// MaxSpan is the longest interval that difference-based comparison can
// order correctly.
const MaxSpan = time.Duration(1<<31-1) * Resolution

// Clock is the time source used by the core.
type Clock interface {
	// Now returns the current counter value.
	Now() Ticks

	// Sleep blocks the caller for at least d.
	Sleep(d time.Duration)
}

// TicksFor converts a duration to ticks, truncating below Resolution.
func TicksFor(d time.Duration) Ticks {
	return Ticks(uint32(d / Resolution))
}

// Since returns the wrapping distance from start to now as a duration.
func Since(start, now Ticks) time.Duration {
	return time.Duration(now-start) * Resolution
}

// Real is a Clock backed by the Go runtime's monotonic time. The counter
// starts at an arbitrary offset so that wrap-around is exercised in the field
// rather than only in tests.
type Real struct {
	base   time.Time
	offset Ticks
}

// NewReal returns a Clock whose counter starts at offset.
func NewReal(offset Ticks) *Real {
	return &Real{base: time.Now(), offset: offset}
}

// Now returns the counter value.
func (r *Real) Now() Ticks {
	return r.offset + Ticks(uint32(time.Since(r.base)/Resolution))
}

// Sleep suspends the calling goroutine for d.
func (r *Real) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	time.Sleep(d)
}
