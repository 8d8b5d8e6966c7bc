package eeprom

import (
	"bytes"
	"sync"
)

// Fake is an in-memory Store for tests.
type Fake struct {
	mu  sync.Mutex
	mem []byte

	// PingFailures makes the next N Ping calls return false.
	PingFailures int

	// Pings counts calls to Ping.
	Pings int

	// PutError, if set, will be returned by Put and nothing is written.
	PutError error

	// GetError, if set, will be returned by Get.
	GetError error

	// Puts counts successful writes.
	Puts int
}

// NewFake creates an erased Fake of the given size.
func NewFake(size int) *Fake {
	return &Fake{mem: bytes.Repeat([]byte{Erased}, size)}
}

// Ping fails while PingFailures is positive.
func (f *Fake) Ping() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pings++
	if f.PingFailures > 0 {
		f.PingFailures--
		return false
	}
	return true
}

// Get reads n bytes at addr.
func (f *Fake) Get(addr uint16, n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.GetError != nil {
		return nil, f.GetError
	}
	if err := checkBounds(addr, n, len(f.mem)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, f.mem[addr:])
	return out, nil
}

// Put writes b at addr.
func (f *Fake) Put(addr uint16, b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PutError != nil {
		return f.PutError
	}
	if err := checkBounds(addr, len(b), len(f.mem)); err != nil {
		return err
	}
	copy(f.mem[addr:], b)
	f.Puts++
	return nil
}
