// Package eeprom provides the byte-addressable non-volatile store that holds
// the relay delay across power loss.
package eeprom

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Store is an addressable byte range that survives power loss.
type Store interface {
	// Ping reports whether the medium answers.
	Ping() bool

	// Get reads n bytes at addr.
	Get(addr uint16, n int) ([]byte, error)

	// Put writes b at addr. The write is durable when Put returns nil.
	Put(addr uint16, b []byte) error
}

// Erased is the value of every byte of a never-written medium.
const Erased = 0xFF

// DefaultSize is the capacity of a 24LC256 part.
const DefaultSize = 32 * 1024

// ErrOutOfBounds is returned for reads or writes past the end of the medium.
var ErrOutOfBounds = errors.New("eeprom: address out of bounds")

// WordSize is the encoded width of a delay value.
const WordSize = 4

// GetUint32 reads a little-endian word at addr.
func GetUint32(s Store, addr uint16) (uint32, error) {
	b, err := s.Get(addr, WordSize)
	if err != nil {
		return 0, err
	}
	if len(b) != WordSize {
		return 0, fmt.Errorf("eeprom: short read at 0x%04x: %d bytes", addr, len(b))
	}
	return binary.LittleEndian.Uint32(b), nil
}

// PutUint32 writes v little-endian at addr.
func PutUint32(s Store, addr uint16, v uint32) error {
	return s.Put(addr, binary.LittleEndian.AppendUint32(nil, v))
}

func checkBounds(addr uint16, n, size int) error {
	if n < 0 || int(addr)+n > size {
		return fmt.Errorf("%w: 0x%04x+%d (size %d)", ErrOutOfBounds, addr, n, size)
	}
	return nil
}
