package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/sweeney/relay-timer/internal/button"
	"github.com/sweeney/relay-timer/internal/config"
	"github.com/sweeney/relay-timer/internal/eeprom"
	"github.com/sweeney/relay-timer/internal/gpio"
	"github.com/sweeney/relay-timer/internal/logic"
	"github.com/sweeney/relay-timer/internal/settings"
)

var errStoreNotResponding = errors.New("settings store not responding")

// show prints the persisted delay and the logical level of every input.
func show(w io.Writer, cfg config.Config, dev *devices) error {
	if !dev.store.Ping() {
		return errStoreNotResponding
	}
	raw, err := eeprom.GetUint32(dev.store, cfg.EEPROM.Address)
	if err != nil {
		return fmt.Errorf("read delay: %w", err)
	}

	limits := settings.Limits{
		DefaultMillis: cfg.Delay.DefaultMs,
		MinMillis:     cfg.Delay.MinMs,
		MaxMillis:     cfg.Delay.MaxMs,
	}
	if limits.Valid(int64(raw)) {
		fmt.Fprintf(w, "delay: %d ms (%s)\n", raw, logic.FormatDelay(raw))
	} else {
		fmt.Fprintf(w, "delay: raw 0x%08x invalid, default %d ms (%s) applies\n",
			raw, limits.DefaultMillis, logic.FormatDelay(limits.DefaultMillis))
	}

	polarity := polarityOf(cfg)
	for _, in := range []struct {
		name string
		pin  gpio.Input
	}{
		{"activate", dev.activate},
		{"cancel", dev.cancel},
		{"increment", dev.increment},
		{"decrement", dev.decrement},
	} {
		b := button.New(in.name, in.pin, polarity, button.Timing{}, nil)
		active, err := b.Active()
		if err != nil {
			fmt.Fprintf(w, "%s: error: %v\n", in.name, err)
			continue
		}
		state := "released"
		if active {
			state = "pressed"
		}
		fmt.Fprintf(w, "%s: %s\n", in.name, state)
	}
	return nil
}

func polarityOf(cfg config.Config) button.Polarity {
	if cfg.ActiveLow() {
		return button.ActiveLow
	}
	return button.ActiveHigh
}
