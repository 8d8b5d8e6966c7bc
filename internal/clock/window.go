package clock

import "time"

// Position is where a counter value falls relative to a Window.
type Position int

const (
	// Before means the lower bound has not been reached yet.
	Before Position = iota
	// Inside means low <= now <= high.
	Inside
	// After means now is past high.
	After
)

func (p Position) String() string {
	switch p {
	case Before:
		return "before"
	case Inside:
		return "inside"
	case After:
		return "after"
	}
	return "unknown"
}

// Window is the deadline band [Low, High] of one activation.
type Window struct {
	Start  Ticks
	Target Ticks
	Low    Ticks
	High   Ticks
}

// NewWindow computes the band around start+delay with the given tolerance on
// each side. delay must be shorter than MaxSpan.
func NewWindow(start Ticks, delay, wiggle time.Duration) Window {
	target := start + TicksFor(delay)
	w := TicksFor(wiggle)
	return Window{
		Start:  start,
		Target: target,
		Low:    target - w,
		High:   target + w,
	}
}

// Locate reports where now falls. All comparisons are on signed differences,
// so the result is correct across counter wrap as long as now is within
// MaxSpan of the bounds.
func (w Window) Locate(now Ticks) Position {
	if int32(now-w.Low) < 0 {
		return Before
	}
	if int32(now-w.High) > 0 {
		return After
	}
	return Inside
}

// Reached reports whether either bound has been reached. Once true it stays
// true until the counter drifts MaxSpan away.
func (w Window) Reached(now Ticks) bool {
	return w.Locate(now) != Before
}

// Remaining returns the time left until Low, or zero once it is reached.
func (w Window) Remaining(now Ticks) time.Duration {
	d := int32(w.Low - now)
	if d <= 0 {
		return 0
	}
	return time.Duration(d) * Resolution
}
