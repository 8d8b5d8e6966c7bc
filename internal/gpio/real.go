//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Chip owns every line requested through it.
type Chip struct {
	chip   *gpiocdev.Chip
	inputs []*gpiocdev.Line
	output []*gpiocdev.Line
}

// OpenChip opens a GPIO character device by name, e.g. "gpiochip0".
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &Chip{chip: chip}, nil
}

// Input requests offset as an input with the given bias.
func (c *Chip) Input(offset int, pull Pull) (Input, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	switch pull {
	case PullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	}

	line, err := c.chip.RequestLine(offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request input pin %d: %w", offset, err)
	}
	c.inputs = append(c.inputs, line)
	return &realInput{line: line}, nil
}

// Output requests offset as an output, initially driven low.
func (c *Chip) Output(offset int) (Output, error) {
	line, err := c.chip.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", offset, err)
	}
	c.output = append(c.output, line)
	return &realOutput{line: line}, nil
}

// Close releases every line and the chip.
// Outputs are driven low and every line is reconfigured to input with
// pull-down (the Pi boot default) so a relay is never left energized and
// attached hardware sees a known state across reboot.
func (c *Chip) Close() error {
	var errs []error

	for _, line := range c.output {
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear output %d: %w", line.Offset(), err))
		}
	}
	for _, line := range append(c.output, c.inputs...) {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", line.Offset(), err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", line.Offset(), err))
		}
	}
	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

type realInput struct {
	line *gpiocdev.Line
}

func (r *realInput) Read() (bool, error) {
	v, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin %d: %w", r.line.Offset(), err)
	}
	return v != 0, nil
}

type realOutput struct {
	line *gpiocdev.Line
}

func (r *realOutput) Set() error {
	if err := r.line.SetValue(1); err != nil {
		return fmt.Errorf("set pin %d: %w", r.line.Offset(), err)
	}
	return nil
}

func (r *realOutput) Clear() error {
	if err := r.line.SetValue(0); err != nil {
		return fmt.Errorf("clear pin %d: %w", r.line.Offset(), err)
	}
	return nil
}
