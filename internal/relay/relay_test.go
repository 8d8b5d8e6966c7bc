package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/sweeney/relay-timer/internal/button"
	"github.com/sweeney/relay-timer/internal/clock"
	"github.com/sweeney/relay-timer/internal/gpio"
	"github.com/sweeney/relay-timer/internal/indicator"
	"github.com/sweeney/relay-timer/internal/logic"
)

const (
	testWiggle = 500 * time.Microsecond
	testPoll   = time.Millisecond
)

type harness struct {
	actuator *Actuator
	relay    *gpio.FakeOutput
	cancel   *gpio.FakeInput
	driver   *indicator.FakeDriver
	palette  indicator.Palette
	clock    clock.Clock
}

func newHarness(clk clock.Clock) *harness {
	h := &harness{
		relay:   gpio.NewFakeOutput(),
		cancel:  gpio.NewFakeInput(false),
		driver:  &indicator.FakeDriver{},
		palette: indicator.NewPalette(10),
		clock:   clk,
	}
	ind := indicator.New(h.driver, h.palette, clk, indicator.DefaultBlinkCycles, indicator.DefaultBlinkPeriod)
	cancel := button.New("cancel", h.cancel, button.ActiveHigh, button.DefaultTiming, clk)
	h.actuator = New(h.relay, cancel, ind, clk, testWiggle, testPoll)
	return h
}

func (h *harness) assertRelayPulsedOnce(t *testing.T) {
	t.Helper()
	if diff := cmp.Diff([]gpio.Op{gpio.OpSet, gpio.OpClear}, h.relay.Ops); diff != "" {
		t.Errorf("relay ops mismatch (-want +got):\n%s", diff)
	}
}

// overshootClock sleeps longer than asked, like a loaded scheduler.
type overshootClock struct {
	*clock.Fake
	extra time.Duration
}

func (o overshootClock) Sleep(d time.Duration) {
	o.Fake.Sleep(d + o.extra)
}

func TestActivateCompletesWithinWindow(t *testing.T) {
	tests := []struct {
		name  string
		start clock.Ticks
		delay time.Duration
		step  time.Duration
	}{
		{"default delay", 1000, 7500 * time.Millisecond, 0},
		{"counter wraps during activation", 0xFFFFFFFF - 1000, 7500 * time.Millisecond, 0},
		{"deadline straddles wrap", 0xFFFFFFFF - 100_000 + 200, 100 * time.Millisecond, 0},
		{"minimum delay", 0, 100 * time.Millisecond, 0},
		{"maximum delay", 0x80000000, 50 * time.Second, 0},
		{"jittery reads", 0xFFFFFF00, 2 * time.Second, 300 * time.Microsecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewFake(tt.start)
			clk.SetStep(tt.step)
			h := newHarness(clk)

			res := h.actuator.Activate(context.Background(), tt.delay)

			if res.Outcome != logic.OutcomeTimedOut {
				t.Fatalf("outcome: got %s, want TIMED_OUT", res.Outcome)
			}
			if res.Late {
				t.Error("should not be late")
			}
			if res.Elapsed < tt.delay-testWiggle || res.Elapsed > tt.delay+testWiggle {
				t.Errorf("elapsed %v outside %v ± %v", res.Elapsed, tt.delay, testWiggle)
			}
			h.assertRelayPulsedOnce(t)
			if h.driver.Count(h.palette[indicator.Error]) != 0 {
				t.Error("completed activation should not blink")
			}
			want := []indicator.RGB{h.palette[indicator.Active], h.palette[indicator.Inactive]}
			if diff := cmp.Diff(want, h.driver.Sent); diff != "" {
				t.Errorf("indicator mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestActivatePollsAtMostPollInterval(t *testing.T) {
	clk := clock.NewFake(0)
	h := newHarness(clk)

	h.actuator.Activate(context.Background(), 10*time.Millisecond)

	for i, d := range clk.Sleeps() {
		if d > testPoll {
			t.Errorf("sleep %d: %v exceeds poll interval", i, d)
		}
	}
}

func TestActivateLateStillEnds(t *testing.T) {
	fake := clock.NewFake(0xFFFFF000)
	clk := overshootClock{Fake: fake, extra: 3 * time.Millisecond}
	h := newHarness(clk)

	// Every sleep lands on a multiple of 4ms, jumping over [101.5ms, 102.5ms].
	res := h.actuator.Activate(context.Background(), 102*time.Millisecond)

	if res.Outcome != logic.OutcomeTimedOut {
		t.Fatalf("outcome: got %s, want TIMED_OUT", res.Outcome)
	}
	if !res.Late {
		t.Error("expected late completion")
	}
	h.assertRelayPulsedOnce(t)
	if h.driver.Last() != h.palette[indicator.Inactive] {
		t.Errorf("indicator should end INACTIVE, got %s", h.driver.Last().Hex())
	}
}

func TestActivateCancelled(t *testing.T) {
	delay := 7500 * time.Millisecond
	for _, at := range []time.Duration{0, 2 * time.Second, delay - testWiggle - testPoll} {
		t.Run(at.String(), func(t *testing.T) {
			clk := clock.NewFake(0xFFFFFFFF - 5000)
			h := newHarness(clk)
			start := clk.Peek()
			h.cancel.LevelFunc = func() bool {
				return clock.Since(start, clk.Peek()) >= at
			}

			res := h.actuator.Activate(context.Background(), delay)

			if res.Outcome != logic.OutcomeCancelled {
				t.Fatalf("outcome: got %s, want CANCELLED", res.Outcome)
			}
			if res.Elapsed < at || res.Elapsed > at+testPoll {
				t.Errorf("cancel at %v noticed after %v", at, res.Elapsed)
			}
			h.assertRelayPulsedOnce(t)
			if got := h.driver.Count(h.palette[indicator.Error]); got != 5 {
				t.Errorf("error blink cycles: got %d, want 5", got)
			}
			if h.driver.Last() != h.palette[indicator.Inactive] {
				t.Errorf("indicator should end INACTIVE, got %s", h.driver.Last().Hex())
			}
		})
	}
}

func TestActivateCancelReadErrorReleasesRelay(t *testing.T) {
	h := newHarness(clock.NewFake(0))
	h.cancel.ReadError = errors.New("line gone")

	res := h.actuator.Activate(context.Background(), time.Second)

	if res.Outcome != logic.OutcomeCancelled {
		t.Errorf("outcome: got %s, want CANCELLED", res.Outcome)
	}
	h.assertRelayPulsedOnce(t)
}

func TestActivateRelayFault(t *testing.T) {
	h := newHarness(clock.NewFake(0))
	h.relay.SetError = errors.New("driver fault")

	res := h.actuator.Activate(context.Background(), time.Second)

	if res.Outcome != logic.OutcomeRelayFault {
		t.Errorf("outcome: got %s, want RELAY_FAULT", res.Outcome)
	}
	h.assertRelayPulsedOnce(t)
	if got := h.driver.Count(h.palette[indicator.Error]); got != 5 {
		t.Errorf("error blink cycles: got %d, want 5", got)
	}
}

func TestActivateShutdownReleasesWithoutBlink(t *testing.T) {
	clk := clock.NewFake(0)
	h := newHarness(clk)
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel.LevelFunc = func() bool {
		if clock.Since(0, clk.Peek()) >= time.Second {
			cancel()
		}
		return false
	}

	res := h.actuator.Activate(ctx, 5*time.Second)

	if res.Outcome != logic.OutcomeCancelled {
		t.Errorf("outcome: got %s, want CANCELLED", res.Outcome)
	}
	h.assertRelayPulsedOnce(t)
	if h.driver.Count(h.palette[indicator.Error]) != 0 {
		t.Error("shutdown should not blink")
	}
	if h.driver.Last() != h.palette[indicator.Off] {
		t.Errorf("indicator should end OFF, got %s", h.driver.Last().Hex())
	}
}
