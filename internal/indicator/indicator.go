// Package indicator drives the tri-color status light.
package indicator

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/relay-timer/internal/clock"
	xlog "github.com/sweeney/relay-timer/internal/log"
)

// Color names a logical indicator state.
type Color string

const (
	Active   Color = "ACTIVE"
	Inactive Color = "INACTIVE"
	Warning  Color = "WARNING"
	Error    Color = "ERROR"
	Off      Color = "OFF"
)

// RGB is a packed 0x00RRGGBB value. Channel order on the wire is a driver
// concern.
type RGB uint32

// NewRGB packs three channel intensities.
func NewRGB(r, g, b uint8) RGB {
	return RGB(uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Channels unpacks the color.
func (c RGB) Channels() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Hex renders the color as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xFFFFFF)
}

// Palette maps each logical color to its RGB value at a given intensity.
type Palette map[Color]RGB

// NewPalette builds the standard palette: Active red, Inactive green,
// Warning red+green, Error red+blue, Off black.
func NewPalette(intensity uint8) Palette {
	return Palette{
		Active:   NewRGB(intensity, 0, 0),
		Inactive: NewRGB(0, intensity, 0),
		Warning:  NewRGB(intensity, intensity, 0),
		Error:    NewRGB(intensity, 0, intensity),
		Off:      0,
	}
}

// Driver sends a packed color to the physical (or remote) light.
type Driver interface {
	Send(c RGB) error
}

// Blink defaults.
const (
	DefaultBlinkCycles = 5
	DefaultBlinkPeriod = 100 * time.Millisecond
)

// Controller maps logical colors to driver writes.
type Controller struct {
	driver  Driver
	palette Palette
	clock   clock.Clock
	cycles  int
	period  time.Duration
	current Color
	logger  zerolog.Logger
}

// New creates a Controller. cycles and period configure Blink.
func New(driver Driver, palette Palette, clk clock.Clock, cycles int, period time.Duration) *Controller {
	return &Controller{
		driver:  driver,
		palette: palette,
		clock:   clk,
		cycles:  cycles,
		period:  period,
		current: Off,
		logger:  xlog.WithComponent("indicator"),
	}
}

// Set shows color immediately. Driver errors are logged; the indicator is
// presentation only and never blocks control flow.
func (c *Controller) Set(color Color) {
	c.current = color
	if err := c.driver.Send(c.palette[color]); err != nil {
		c.logger.Warn().Err(err).Str("color", string(color)).Msg("indicator send failed")
	}
}

// Current returns the last color passed to Set.
func (c *Controller) Current() Color {
	return c.current
}

// Blink alternates color and Off for the configured number of cycles,
// holding each for the configured period, then restores Inactive.
// It blocks for the full pattern.
func (c *Controller) Blink(color Color) {
	for i := 0; i < c.cycles; i++ {
		c.Set(color)
		c.clock.Sleep(c.period)
		c.Set(Off)
		c.clock.Sleep(c.period)
	}
	c.Set(Inactive)
}
