// Package gpio provides digital pin access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

// Input reads the raw electrical level of a pin. Polarity is applied by the
// caller, not here.
type Input interface {
	// Read returns true when the pin is high.
	Read() (bool, error)
}

// Output drives a pin.
type Output interface {
	// Set drives the pin high.
	Set() error

	// Clear drives the pin low.
	Clear() error
}

// Pull selects the bias applied to an input line.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Default line offsets on gpiochip0 (BCM numbering).
const (
	DefaultPinRelay     = 17
	DefaultPinActivate  = 27
	DefaultPinCancel    = 22
	DefaultPinIncrement = 23
	DefaultPinDecrement = 24
)
