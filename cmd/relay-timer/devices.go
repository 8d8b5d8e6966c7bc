package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sweeney/relay-timer/internal/config"
	"github.com/sweeney/relay-timer/internal/eeprom"
	"github.com/sweeney/relay-timer/internal/gpio"
	"github.com/sweeney/relay-timer/internal/indicator"
	"github.com/sweeney/relay-timer/internal/serial"
)

// devices are the hardware handles the daemon drives.
type devices struct {
	relay     gpio.Output
	activate  gpio.Input
	cancel    gpio.Input
	increment gpio.Input
	decrement gpio.Input
	// led is nil when no indicator pins are configured.
	led    indicator.Driver
	store  eeprom.Store
	serial io.Writer

	closers []io.Closer
}

// Close releases every handle in reverse order of opening.
func (d *devices) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// openDevices requests every line on the configured chip, opens the settings
// medium and the diagnostics sink.
func openDevices(cfg config.Config) (_ *devices, err error) {
	dev := &devices{}
	defer func() {
		if err != nil {
			dev.Close()
		}
	}()

	chip, err := gpio.OpenChip(cfg.Pins.Chip)
	if err != nil {
		return nil, err
	}
	dev.closers = append(dev.closers, chip)

	dev.relay, err = chip.Output(cfg.Pins.Relay)
	if err != nil {
		return nil, err
	}

	// Bias inputs toward their released level.
	pull := gpio.PullDown
	if cfg.ActiveLow() {
		pull = gpio.PullUp
	}
	for _, in := range []struct {
		offset int
		dst    *gpio.Input
	}{
		{cfg.Pins.Activate, &dev.activate},
		{cfg.Pins.Cancel, &dev.cancel},
		{cfg.Pins.Increment, &dev.increment},
		{cfg.Pins.Decrement, &dev.decrement},
	} {
		if *in.dst, err = chip.Input(in.offset, pull); err != nil {
			return nil, err
		}
	}

	led, err := openLED(chip, cfg.Indicator)
	if err != nil {
		return nil, err
	}
	if led != nil {
		dev.led = led
	}

	switch cfg.EEPROM.Kind {
	case config.EEPROMDevice:
		dev.store = eeprom.NewDeviceStore(cfg.EEPROM.Path, cfg.EEPROM.Size)
	default:
		dev.store = eeprom.NewFileStore(cfg.EEPROM.Path, cfg.EEPROM.Size)
	}

	if cfg.Serial.Device == config.StdoutDevice {
		dev.serial = os.Stdout
	} else {
		f, err := serial.Open(cfg.Serial.Device, cfg.Serial.Baud)
		if err != nil {
			return nil, err
		}
		dev.closers = append(dev.closers, f)
		dev.serial = f
	}

	return dev, nil
}

// openLED returns nil when every indicator pin is unset.
func openLED(chip *gpio.Chip, cfg config.IndicatorConfig) (*indicator.PinDriver, error) {
	led := &indicator.PinDriver{}
	wired := false
	for _, ch := range []struct {
		name   string
		offset int
		dst    *gpio.Output
	}{
		{"red", cfg.RedPin, &led.Red},
		{"green", cfg.GreenPin, &led.Green},
		{"blue", cfg.BluePin, &led.Blue},
	} {
		if ch.offset < 0 {
			continue
		}
		out, err := chip.Output(ch.offset)
		if err != nil {
			return nil, fmt.Errorf("indicator %s: %w", ch.name, err)
		}
		*ch.dst = out
		wired = true
	}
	if !wired {
		return nil, nil
	}
	return led, nil
}
