//go:build !linux

package serial

import (
	"errors"
	"os"
)

// Supported reports whether baud can be configured.
func Supported(baud int) bool {
	switch baud {
	case 9600, 19200, 38400, 57600, 115200, 230400:
		return true
	}
	return false
}

// Open is not implemented on non-Linux platforms.
func Open(device string, baud int) (*os.File, error) {
	return nil, errors.New("serial: not supported on this platform (requires Linux)")
}
