// Package button turns a bouncing push-button input into one logical trigger
// per physical press.
package button

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/relay-timer/internal/clock"
	"github.com/sweeney/relay-timer/internal/gpio"
	xlog "github.com/sweeney/relay-timer/internal/log"
)

// Polarity selects which raw level counts as pressed.
type Polarity int

const (
	ActiveHigh Polarity = iota
	ActiveLow
)

func (p Polarity) String() string {
	if p == ActiveLow {
		return "low"
	}
	return "high"
}

// MaxReadErrors is how many consecutive failed release samples Debounce
// tolerates before giving up on the input.
const MaxReadErrors = 50

// ErrInputFault is returned by Debounce when the input stops answering.
var ErrInputFault = errors.New("input not readable")

// Timing holds the debounce delays.
type Timing struct {
	// Settle is waited after a trigger before sampling for release.
	Settle time.Duration
	// Release is waited after the input returns to inactive.
	Release time.Duration
	// Poll is the interval between release samples.
	Poll time.Duration
}

// DefaultTiming matches common tactile switches.
var DefaultTiming = Timing{
	Settle:  10 * time.Millisecond,
	Release: 100 * time.Millisecond,
	Poll:    time.Millisecond,
}

// Button is one debounced input role.
type Button struct {
	name     string
	pin      gpio.Input
	polarity Polarity
	timing   Timing
	clock    clock.Clock
	logger   zerolog.Logger
}

// New creates a Button reading pin.
func New(name string, pin gpio.Input, polarity Polarity, timing Timing, clk clock.Clock) *Button {
	return &Button{
		name:     name,
		pin:      pin,
		polarity: polarity,
		timing:   timing,
		clock:    clk,
		logger:   xlog.WithComponent("button").With().Str("input", name).Logger(),
	}
}

// Name returns the role name given to New.
func (b *Button) Name() string {
	return b.name
}

// Active reports whether the input currently reads pressed. A read error is
// returned to the caller unchanged.
func (b *Button) Active() (bool, error) {
	raw, err := b.pin.Read()
	if err != nil {
		return false, err
	}
	if b.polarity == ActiveLow {
		return !raw, nil
	}
	return raw, nil
}

// Triggered samples the input once. A true result is one trigger event and
// the caller must call Debounce before polling this input again.
// Read errors are logged and count as not pressed.
func (b *Button) Triggered() bool {
	active, err := b.Active()
	if err != nil {
		b.logger.Warn().Err(err).Msg("input read failed")
		return false
	}
	return active
}

// Debounce waits out contact bounce, then blocks until the input is released,
// then waits for the release bounce to settle. It returns early when ctx is
// done, or with ErrInputFault after MaxReadErrors consecutive read failures.
func (b *Button) Debounce(ctx context.Context) error {
	b.clock.Sleep(b.timing.Settle)

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		active, err := b.Active()
		switch {
		case err != nil:
			failures++
			if failures >= MaxReadErrors {
				return fmt.Errorf("%s: %w after %d reads: %v", b.name, ErrInputFault, failures, err)
			}
			if failures == 1 {
				b.logger.Warn().Err(err).Msg("input read failed while waiting for release")
			}
		case !active:
			b.clock.Sleep(b.timing.Release)
			return nil
		default:
			failures = 0
		}
		b.clock.Sleep(b.timing.Poll)
	}
}
