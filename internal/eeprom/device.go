package eeprom

import (
	"fmt"
	"os"
	"sync"
)

// DeviceStore talks to an EEPROM exposed as a file by the kernel, e.g. the
// at24 driver's /sys/bus/i2c/devices/1-0050/eeprom node. Writes go straight
// through with O_SYNC; the node cannot be renamed over.
type DeviceStore struct {
	mu   sync.Mutex
	path string
	size int
}

// NewDeviceStore creates a DeviceStore for the node at path.
func NewDeviceStore(path string, size int) *DeviceStore {
	return &DeviceStore{path: path, size: size}
}

// Ping reads one byte from the start of the device.
func (d *DeviceStore) Ping() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.Open(d.path)
	if err != nil {
		return false
	}
	defer f.Close()

	var b [1]byte
	_, err = f.ReadAt(b[:], 0)
	return err == nil
}

// Get reads n bytes at addr.
func (d *DeviceStore) Get(addr uint16, n int) ([]byte, error) {
	if err := checkBounds(addr, n, d.size); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.Open(d.path)
	if err != nil {
		return nil, fmt.Errorf("open eeprom device: %w", err)
	}
	defer f.Close()

	out := make([]byte, n)
	if _, err := f.ReadAt(out, int64(addr)); err != nil {
		return nil, fmt.Errorf("read eeprom 0x%04x: %w", addr, err)
	}
	return out, nil
}

// Put writes b at addr synchronously.
func (d *DeviceStore) Put(addr uint16, b []byte) error {
	if err := checkBounds(addr, len(b), d.size); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	f, err := os.OpenFile(d.path, os.O_WRONLY|os.O_SYNC, 0)
	if err != nil {
		return fmt.Errorf("open eeprom device: %w", err)
	}

	if _, err := f.WriteAt(b, int64(addr)); err != nil {
		f.Close()
		return fmt.Errorf("write eeprom 0x%04x: %w", addr, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close eeprom device: %w", err)
	}
	return nil
}
