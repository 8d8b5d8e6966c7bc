package indicator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sweeney/relay-timer/internal/gpio"
)

// PinDriver lights a common-cathode RGB LED wired to three GPIO outputs.
// A channel is on when its intensity is non-zero.
type PinDriver struct {
	Red   gpio.Output
	Green gpio.Output
	Blue  gpio.Output
}

// Send drives each channel pin.
func (p *PinDriver) Send(c RGB) error {
	r, g, b := c.Channels()
	var errs []error
	for _, ch := range []struct {
		name string
		pin  gpio.Output
		on   bool
	}{
		{"red", p.Red, r != 0},
		{"green", p.Green, g != 0},
		{"blue", p.Blue, b != 0},
	} {
		if ch.pin == nil {
			continue
		}
		var err error
		if ch.on {
			err = ch.pin.Set()
		} else {
			err = ch.pin.Clear()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s channel: %w", ch.name, err))
		}
	}
	return errors.Join(errs...)
}

// Multi fans every color out to several drivers.
type Multi []Driver

// Send writes to every driver and joins their errors.
func (m Multi) Send(c RGB) error {
	var errs []error
	for _, d := range m {
		if err := d.Send(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FakeDriver records every color sent.
type FakeDriver struct {
	mu sync.Mutex

	// Sent contains every color in order.
	Sent []RGB

	// SendError, if set, is returned by Send (the color is still recorded).
	SendError error
}

// Send records c.
func (f *FakeDriver) Send(c RGB) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Sent = append(f.Sent, c)
	return f.SendError
}

// Last returns the most recent color, or Off if nothing was sent.
func (f *FakeDriver) Last() RGB {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Sent) == 0 {
		return 0
	}
	return f.Sent[len(f.Sent)-1]
}

// Count returns how many times c was sent.
func (f *FakeDriver) Count(c RGB) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.Sent {
		if s == c {
			n++
		}
	}
	return n
}

// Reset forgets recorded colors.
func (f *FakeDriver) Reset() {
	f.mu.Lock()
	f.Sent = nil
	f.mu.Unlock()
}
