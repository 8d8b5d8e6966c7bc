package button

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/relay-timer/internal/clock"
	"github.com/sweeney/relay-timer/internal/gpio"
)

// bouncyPress returns a level function for a press held from 0 to hold with
// a bounce burst at each edge. Bounce toggles every millisecond for 5ms.
func bouncyPress(clk *clock.Fake, start clock.Ticks, hold time.Duration) func() bool {
	const burst = 5 * time.Millisecond
	return func() bool {
		elapsed := clock.Since(start, clk.Peek())
		ms := int(elapsed / time.Millisecond)
		switch {
		case elapsed < burst:
			return ms%2 == 0
		case elapsed < hold:
			return true
		case elapsed < hold+burst:
			return ms%2 == 0
		default:
			return false
		}
	}
}

// pollFor simulates a control loop polling one button until the fake clock
// has advanced by d, returning the number of triggers observed.
func pollFor(t *testing.T, b *Button, clk *clock.Fake, d time.Duration) int {
	t.Helper()
	start := clk.Peek()
	triggers := 0
	for clock.Since(start, clk.Peek()) < d {
		if b.Triggered() {
			triggers++
			if err := b.Debounce(context.Background()); err != nil {
				t.Fatalf("debounce: %v", err)
			}
			continue
		}
		clk.Sleep(time.Millisecond)
	}
	return triggers
}

func TestBounceBurstYieldsOneTrigger(t *testing.T) {
	tests := []struct {
		name string
		hold time.Duration
	}{
		{"short press", 20 * time.Millisecond},
		{"normal press", 80 * time.Millisecond},
		{"long hold", 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewFake(0xFFFFFF00)
			pin := &gpio.FakeInput{LevelFunc: bouncyPress(clk, clk.Peek(), tt.hold)}
			b := New("activate", pin, ActiveHigh, DefaultTiming, clk)

			if got := pollFor(t, b, clk, tt.hold+time.Second); got != 1 {
				t.Errorf("expected exactly 1 trigger, got %d", got)
			}
		})
	}
}

func TestSeparatePressesAreNotRateLimited(t *testing.T) {
	clk := clock.NewFake(0)
	start := clk.Peek()
	// Three presses of 30ms, each 200ms apart.
	pin := &gpio.FakeInput{LevelFunc: func() bool {
		ms := int(clock.Since(start, clk.Peek()) / time.Millisecond)
		return ms < 600 && ms%200 < 30
	}}
	b := New("increment", pin, ActiveHigh, DefaultTiming, clk)

	if got := pollFor(t, b, clk, time.Second); got != 3 {
		t.Errorf("expected 3 triggers, got %d", got)
	}
}

func TestActiveLowPolarity(t *testing.T) {
	clk := clock.NewFake(0)
	pin := gpio.NewFakeInput(false, true)
	b := New("cancel", pin, ActiveLow, DefaultTiming, clk)

	if !b.Triggered() {
		t.Error("raw low should be pressed for active-low input")
	}
	if b.Triggered() {
		t.Error("raw high should be released for active-low input")
	}
}

func TestTriggeredReadErrorIsNotPressed(t *testing.T) {
	pin := gpio.NewFakeInput(true)
	pin.ReadError = errors.New("line gone")
	b := New("activate", pin, ActiveHigh, DefaultTiming, clock.NewFake(0))

	if b.Triggered() {
		t.Error("read error should not count as a trigger")
	}
}

func TestDebounceTiming(t *testing.T) {
	clk := clock.NewFake(0)
	// Pressed for the first two release samples, then released.
	pin := gpio.NewFakeInput(true, true, false)
	b := New("activate", pin, ActiveHigh, DefaultTiming, clk)

	if err := b.Debounce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []time.Duration{
		DefaultTiming.Settle,
		DefaultTiming.Poll,
		DefaultTiming.Poll,
		DefaultTiming.Release,
	}
	got := clk.Sleeps()
	if len(got) != len(want) {
		t.Fatalf("sleeps: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sleep %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDebounceStopsOnContextCancel(t *testing.T) {
	clk := clock.NewFake(0)
	pin := gpio.NewFakeInput(true) // held forever
	b := New("activate", pin, ActiveHigh, DefaultTiming, clk)

	ctx, cancel := context.WithCancel(context.Background())
	pin.LevelFunc = func() bool {
		if clock.Since(0, clk.Peek()) > time.Second {
			cancel()
		}
		return true
	}

	if err := b.Debounce(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDebounceGivesUpOnDeadInput(t *testing.T) {
	clk := clock.NewFake(0)
	pin := gpio.NewFakeInput(true)
	pin.ReadError = errors.New("line gone")
	b := New("cancel", pin, ActiveHigh, DefaultTiming, clk)

	err := b.Debounce(context.Background())

	if !errors.Is(err, ErrInputFault) {
		t.Fatalf("expected ErrInputFault, got %v", err)
	}
	if pin.Reads != MaxReadErrors {
		t.Errorf("reads: got %d, want %d", pin.Reads, MaxReadErrors)
	}
	if got, want := clk.Slept(), DefaultTiming.Settle+(MaxReadErrors-1)*DefaultTiming.Poll; got != want {
		t.Errorf("slept: got %v, want %v", got, want)
	}
}

func TestDebounceToleratesIntermittentErrors(t *testing.T) {
	clk := clock.NewFake(0)
	reads := 0
	pin := &flakyInput{fail: func() bool {
		reads++
		// every other sample fails for the first 200 samples, then released
		return reads < 200 && reads%2 == 0
	}, level: func() bool { return reads < 200 }}
	b := New("activate", pin, ActiveHigh, DefaultTiming, clk)

	if err := b.Debounce(context.Background()); err != nil {
		t.Fatalf("intermittent errors should not abort debounce: %v", err)
	}
}

type flakyInput struct {
	fail  func() bool
	level func() bool
}

func (f *flakyInput) Read() (bool, error) {
	if f.fail() {
		return false, errors.New("glitch")
	}
	return f.level(), nil
}
