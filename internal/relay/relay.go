// Package relay runs one timed activation of the relay output: energize,
// wait for the deadline window or a cancel, de-energize.
package relay

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/relay-timer/internal/clock"
	"github.com/sweeney/relay-timer/internal/gpio"
	"github.com/sweeney/relay-timer/internal/indicator"
	xlog "github.com/sweeney/relay-timer/internal/log"
	"github.com/sweeney/relay-timer/internal/logic"
)

// Canceler reports whether the cancel input is asserted.
type Canceler interface {
	Active() (bool, error)
}

// Result describes one finished activation.
type Result struct {
	Outcome logic.Outcome
	Elapsed time.Duration
	Late    bool
}

// Actuator owns the relay output during an activation.
type Actuator struct {
	relay     gpio.Output
	cancel    Canceler
	indicator *indicator.Controller
	clock     clock.Clock
	wiggle    time.Duration
	poll      time.Duration
	logger    zerolog.Logger
}

// New creates an Actuator. wiggle is the tolerance on each side of the
// deadline; poll bounds how long a cancel can go unnoticed.
func New(relay gpio.Output, cancel Canceler, ind *indicator.Controller, clk clock.Clock, wiggle, poll time.Duration) *Actuator {
	return &Actuator{
		relay:     relay,
		cancel:    cancel,
		indicator: ind,
		clock:     clk,
		wiggle:    wiggle,
		poll:      poll,
		logger:    xlog.WithComponent("relay"),
	}
}

// Activate energizes the relay for delay, or until the cancel input is seen,
// then de-energizes it exactly once. Cancelled activations end with the Error
// blink; completed ones return the indicator straight to Inactive.
//
// ctx is the process lifetime, not a user cancel: when it is done the relay
// is released and the activation reported as Cancelled without a blink.
func (a *Actuator) Activate(ctx context.Context, delay time.Duration) Result {
	a.indicator.Set(indicator.Active)
	start := a.clock.Now()

	if err := a.relay.Set(); err != nil {
		a.logger.Error().Err(err).Msg("assert relay failed")
		a.release()
		a.indicator.Blink(indicator.Error)
		return Result{Outcome: logic.OutcomeRelayFault}
	}

	w := clock.NewWindow(start, delay, a.wiggle)
	outcome, pos, end := a.wait(ctx, w)

	a.release()

	res := Result{
		Outcome: outcome,
		Elapsed: clock.Since(start, end),
		Late:    pos == clock.After,
	}

	switch {
	case outcome == logic.OutcomeCancelled && ctx.Err() != nil:
		a.logger.Info().Dur("elapsed", res.Elapsed).Msg("activation aborted by shutdown")
		a.indicator.Set(indicator.Off)
	case outcome == logic.OutcomeCancelled:
		a.logger.Info().Dur("elapsed", res.Elapsed).Dur("delay", delay).Msg("activation cancelled")
		a.indicator.Blink(indicator.Error)
	default:
		if res.Late {
			a.logger.Warn().Dur("elapsed", res.Elapsed).Dur("delay", delay).Dur("wiggle", a.wiggle).Msg("deadline observed late")
		} else {
			a.logger.Debug().Dur("elapsed", res.Elapsed).Dur("delay", delay).Msg("activation complete")
		}
		a.indicator.Set(indicator.Inactive)
	}
	return res
}

// wait polls the cancel input and the counter until one of them ends the
// activation. Either bound of the window being reached ends it.
func (a *Actuator) wait(ctx context.Context, w clock.Window) (logic.Outcome, clock.Position, clock.Ticks) {
	for {
		if a.cancelled() || ctx.Err() != nil {
			return logic.OutcomeCancelled, clock.Before, a.clock.Now()
		}

		now := a.clock.Now()
		if pos := w.Locate(now); pos != clock.Before {
			return logic.OutcomeTimedOut, pos, now
		}

		a.clock.Sleep(min(a.poll, w.Remaining(now)))
	}
}

// cancelled reads the cancel input. A read error counts as a cancel so the
// relay is never held on an input we cannot see.
func (a *Actuator) cancelled() bool {
	active, err := a.cancel.Active()
	if err != nil {
		a.logger.Error().Err(err).Msg("cancel input read failed, releasing relay")
		return true
	}
	return active
}

func (a *Actuator) release() {
	if err := a.relay.Clear(); err != nil {
		a.logger.Error().Err(err).Msg("release relay failed")
	}
}
