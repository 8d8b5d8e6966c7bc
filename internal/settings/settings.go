// Package settings validates, persists and recovers the relay delay.
package settings

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/relay-timer/internal/clock"
	"github.com/sweeney/relay-timer/internal/eeprom"
	"github.com/sweeney/relay-timer/internal/indicator"
	xlog "github.com/sweeney/relay-timer/internal/log"
	"github.com/sweeney/relay-timer/internal/logic"
	"github.com/sweeney/relay-timer/internal/serial"
)

var (
	// ErrOutOfRange is returned for a delay outside [Min, Max].
	ErrOutOfRange = errors.New("settings: delay out of range")
	// ErrStoreFailure is returned when the new delay could not be persisted.
	ErrStoreFailure = errors.New("settings: store write failed")
	// ErrStoreUnavailable is returned when the store never answered before
	// the boot probe was abandoned.
	ErrStoreUnavailable = errors.New("settings: store unavailable")
)

// OutcomeErr maps a request outcome to its sentinel error, nil for Accepted.
func OutcomeErr(o logic.Outcome) error {
	switch o {
	case logic.OutcomeRejected:
		return ErrOutOfRange
	case logic.OutcomeStoreFailure:
		return ErrStoreFailure
	}
	return nil
}

// Limits bounds the delay.
type Limits struct {
	DefaultMillis uint32
	MinMillis     uint32
	MaxMillis     uint32
}

// Valid reports whether v is within [MinMillis, MaxMillis].
func (l Limits) Valid(v int64) bool {
	return int64(l.MinMillis) <= v && v <= int64(l.MaxMillis)
}

// Store owns the in-memory delay and its persisted mirror.
type Store struct {
	store     eeprom.Store
	addr      uint16
	limits    Limits
	indicator *indicator.Controller
	printer   *serial.Printer
	clock     clock.Clock
	retry     time.Duration
	delay     uint32
	logger    zerolog.Logger
}

// Options configures a Store.
type Options struct {
	Store     eeprom.Store
	Address   uint16
	Limits    Limits
	Indicator *indicator.Controller
	Printer   *serial.Printer
	Clock     clock.Clock
	// PingInterval is the wait between boot probes.
	PingInterval time.Duration
}

// New creates a Store holding the default delay until Recover is called.
func New(opts Options) *Store {
	return &Store{
		store:     opts.Store,
		addr:      opts.Address,
		limits:    opts.Limits,
		indicator: opts.Indicator,
		printer:   opts.Printer,
		clock:     opts.Clock,
		retry:     opts.PingInterval,
		delay:     opts.Limits.DefaultMillis,
		logger:    xlog.WithComponent("settings"),
	}
}

// Delay returns the delay currently in force, in milliseconds.
func (s *Store) Delay() uint32 {
	return s.delay
}

// Duration returns Delay as a time.Duration.
func (s *Store) Duration() time.Duration {
	return time.Duration(s.delay) * time.Millisecond
}

// Verify probes the store until it answers. Without the store no delay can
// be trusted, so this is the one place the controller may stall; it gives
// up only when ctx is done.
func (s *Store) Verify(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		if s.store.Ping() {
			if attempt > 1 {
				s.logger.Info().Int("attempts", attempt).Msg("eeprom answered")
			}
			return nil
		}
		if attempt == 1 || attempt%50 == 0 {
			s.logger.Warn().Int("attempts", attempt).Msg("unable to ping eeprom, retrying")
		}
		s.printer.Message(serial.MsgNoStorePing)

		if err := ctx.Err(); err != nil {
			return errors.Join(ErrStoreUnavailable, err)
		}
		s.clock.Sleep(s.retry)
	}
}

// Load returns the raw persisted word without validating it. A never-written
// medium returns the erased pattern.
func (s *Store) Load() (uint32, error) {
	return eeprom.GetUint32(s.store, s.addr)
}

// Recover reads the persisted delay and puts it in force if it validates,
// otherwise keeps the default. It reports whether the persisted value was used.
func (s *Store) Recover() bool {
	raw, err := s.Load()
	if err != nil {
		s.logger.Error().Err(err).Uint32("default_ms", s.limits.DefaultMillis).Msg("read persisted delay failed, using default")
		s.delay = s.limits.DefaultMillis
		return false
	}
	if !s.limits.Valid(int64(raw)) {
		s.logger.Warn().Uint32("raw", raw).Uint32("default_ms", s.limits.DefaultMillis).Msg("persisted delay invalid, using default")
		s.delay = s.limits.DefaultMillis
		return false
	}
	s.delay = raw
	s.logger.Info().Uint32("delay_ms", raw).Msg("recovered persisted delay")
	return true
}

// Request validates and persists a new delay. The in-memory delay changes
// only on Accepted. Every outcome ends with the delay in force reported on
// the diagnostics stream.
func (s *Store) Request(millis int64) logic.Outcome {
	if !s.limits.Valid(millis) {
		s.logger.Info().Int64("requested_ms", millis).Uint32("delay_ms", s.delay).Msg("delay out of range")
		s.printer.Message(serial.MsgOutOfRange)
		s.indicator.Blink(indicator.Warning)
		s.printer.Delay(s.delay)
		return logic.OutcomeRejected
	}

	v := uint32(millis)
	if err := eeprom.PutUint32(s.store, s.addr, v); err != nil {
		s.logger.Error().Err(err).Uint32("requested_ms", v).Msg("persist delay failed")
		s.printer.Message(serial.MsgStoreError)
		s.indicator.Blink(indicator.Error)
		s.printer.Delay(s.delay)
		return logic.OutcomeStoreFailure
	}

	s.delay = v
	s.logger.Info().Uint32("delay_ms", v).Msg("delay updated")
	s.printer.Delay(v)
	return logic.OutcomeAccepted
}
