package eeprom

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/google/renameio/v2"
)

// FileStore keeps the medium as an image file. Every Put rewrites the whole
// image through a pending file that is fsynced and renamed into place, so a
// power cut leaves either the old or the new image.
type FileStore struct {
	mu   sync.Mutex
	path string
	size int
}

// NewFileStore creates a FileStore for an image of size bytes at path. The
// image is created, fully erased, on first Ping.
func NewFileStore(path string, size int) *FileStore {
	return &FileStore{path: path, size: size}
}

// Ping reports whether the image is readable and of the right size,
// creating it if it does not exist yet.
func (f *FileStore) Ping() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, err := f.load()
	return err == nil
}

// Get reads n bytes at addr.
func (f *FileStore) Get(addr uint16, n int) ([]byte, error) {
	if err := checkBounds(addr, n, f.size); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	img, err := f.load()
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, img[addr:])
	return out, nil
}

// Put writes b at addr and replaces the image atomically.
func (f *FileStore) Put(addr uint16, b []byte) error {
	if err := checkBounds(addr, len(b), f.size); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	img, err := f.load()
	if err != nil {
		return err
	}
	copy(img[addr:], b)
	return f.write(img)
}

// load returns the image, creating an erased one if the file is missing.
// Caller holds f.mu.
func (f *FileStore) load() ([]byte, error) {
	img, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		img = bytes.Repeat([]byte{Erased}, f.size)
		if err := f.write(img); err != nil {
			return nil, err
		}
		return img, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read eeprom image: %w", err)
	}
	if len(img) != f.size {
		return nil, fmt.Errorf("eeprom image %s: size %d, want %d", f.path, len(img), f.size)
	}
	return img, nil
}

// write replaces the image durably. Caller holds f.mu.
func (f *FileStore) write(img []byte) error {
	pending, err := renameio.NewPendingFile(f.path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending eeprom image: %w", err)
	}
	defer pending.Cleanup()

	if _, err := pending.Write(img); err != nil {
		return fmt.Errorf("write eeprom image: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace eeprom image: %w", err)
	}
	return nil
}
