// Package controller runs the relay timer's polling loop: activate, then
// increment, then decrement, once per iteration.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/relay-timer/internal/button"
	"github.com/sweeney/relay-timer/internal/clock"
	"github.com/sweeney/relay-timer/internal/gpio"
	"github.com/sweeney/relay-timer/internal/indicator"
	xlog "github.com/sweeney/relay-timer/internal/log"
	"github.com/sweeney/relay-timer/internal/logic"
	"github.com/sweeney/relay-timer/internal/relay"
	"github.com/sweeney/relay-timer/internal/serial"
	"github.com/sweeney/relay-timer/internal/settings"
)

// Observer receives every event the controller emits. Observe is called on
// the control goroutine and must not block for long.
type Observer interface {
	Observe(e logic.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e logic.Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e logic.Event) { f(e) }

// Config is the immutable tuning assembled once at startup.
type Config struct {
	StepMillis uint32
	Wiggle     time.Duration
	// Poll is the idle wait between loop iterations and the longest a
	// cancel can go unnoticed during an activation.
	Poll time.Duration
}

// Hardware groups the drivers the controller owns.
type Hardware struct {
	Relay     gpio.Output
	Activate  *button.Button
	Cancel    *button.Button
	Increment *button.Button
	Decrement *button.Button
	Indicator *indicator.Controller
	Printer   *serial.Printer
	Clock     clock.Clock
}

// Controller owns the relay, the indicator and the delay setting.
type Controller struct {
	cfg       Config
	hw        Hardware
	settings  *settings.Store
	actuator  *relay.Actuator
	observers []Observer
	now       func() time.Time
	logger    zerolog.Logger

	mu     sync.Mutex
	counts logic.Counts
}

// New creates a Controller. now stamps emitted events.
func New(cfg Config, hw Hardware, store *settings.Store, now func() time.Time, observers ...Observer) *Controller {
	return &Controller{
		cfg:       cfg,
		hw:        hw,
		settings:  store,
		actuator:  relay.New(hw.Relay, hw.Cancel, hw.Indicator, hw.Clock, cfg.Wiggle, cfg.Poll),
		observers: observers,
		now:       now,
		logger:    xlog.WithComponent("controller"),
	}
}

// Boot puts the outputs in a safe state, waits for the settings store and
// recovers the delay. It blocks until the store answers or ctx is done.
func (c *Controller) Boot(ctx context.Context) error {
	if err := c.hw.Relay.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("clear relay at boot failed")
	}
	c.hw.Indicator.Set(indicator.Off)

	if err := c.settings.Verify(ctx); err != nil {
		return err
	}
	c.settings.Recover()

	c.hw.Indicator.Set(indicator.Inactive)
	c.hw.Printer.Delay(c.settings.Delay())
	c.logger.Info().Uint32("delay_ms", c.settings.Delay()).Msg("ready")
	c.emit(logic.Event{Type: logic.EventBoot, DelayMillis: c.settings.Delay()})
	return nil
}

// Run boots and then polls until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Boot(ctx); err != nil {
		return err
	}
	for ctx.Err() == nil {
		if !c.Step(ctx) {
			c.hw.Clock.Sleep(c.cfg.Poll)
		}
	}
	return nil
}

// Step runs one loop iteration and reports whether any input fired.
func (c *Controller) Step(ctx context.Context) bool {
	fired := false

	if c.hw.Activate.Triggered() {
		fired = true
		c.activate(ctx)
		c.debounce(ctx, c.hw.Activate)
	}

	if c.hw.Increment.Triggered() {
		fired = true
		c.request(int64(c.settings.Delay()) + int64(c.cfg.StepMillis))
		c.debounce(ctx, c.hw.Increment)
	}

	if c.hw.Decrement.Triggered() {
		fired = true
		c.request(int64(c.settings.Delay()) - int64(c.cfg.StepMillis))
		c.debounce(ctx, c.hw.Decrement)
	}

	return fired
}

// Counts returns the outcome counters.
func (c *Controller) Counts() logic.Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}

// Delay returns the delay in force.
func (c *Controller) Delay() uint32 {
	return c.settings.Delay()
}

func (c *Controller) activate(ctx context.Context) {
	delay := c.settings.Delay()
	c.emit(logic.Event{Type: logic.EventActivationStart, DelayMillis: delay})

	res := c.actuator.Activate(ctx, c.settings.Duration())

	c.emit(logic.Event{
		Type:        logic.EventActivationEnd,
		Outcome:     res.Outcome,
		DelayMillis: delay,
		Elapsed:     res.Elapsed,
		Late:        res.Late,
	})
}

func (c *Controller) request(millis int64) {
	out := c.settings.Request(millis)
	c.emit(logic.Event{
		Type:            logic.EventDelayRequest,
		Outcome:         out,
		DelayMillis:     c.settings.Delay(),
		RequestedMillis: millis,
	})
}

func (c *Controller) debounce(ctx context.Context, b *button.Button) {
	err := b.Debounce(ctx)
	switch {
	case err == nil:
	case errors.Is(err, button.ErrInputFault):
		c.logger.Error().Err(err).Str("input", b.Name()).Msg("input stopped responding, resuming polling")
	default:
		c.logger.Debug().Err(err).Str("input", b.Name()).Msg("debounce interrupted")
	}
}

func (c *Controller) emit(e logic.Event) {
	e.Timestamp = c.now()

	c.mu.Lock()
	c.counts.Record(e)
	c.mu.Unlock()

	for _, o := range c.observers {
		o.Observe(e)
	}
}
