package gpio

import (
	"errors"
	"sync"
)

// FakeInput is a test double that returns scripted levels.
type FakeInput struct {
	mu sync.Mutex

	// Levels contains scripted raw levels to return.
	// Each call to Read() consumes the next level.
	Levels []bool

	// LevelFunc, if set, is consulted instead of Levels. It lets tests tie
	// the level to a fake clock.
	LevelFunc func() bool

	// index tracks current position in Levels
	index int

	// Reads counts calls to Read
	Reads int

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeInput creates a FakeInput with the given levels.
func NewFakeInput(levels ...bool) *FakeInput {
	return &FakeInput{Levels: levels}
}

// Read returns the next scripted level.
// If levels are exhausted, returns the last level repeatedly.
func (f *FakeInput) Read() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if f.LevelFunc != nil {
		return f.LevelFunc(), nil
	}
	if len(f.Levels) == 0 {
		return false, errors.New("no levels configured")
	}

	level := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}
	return level, nil
}

// Reset rewinds the input to the first level.
func (f *FakeInput) Reset() {
	f.mu.Lock()
	f.index = 0
	f.Reads = 0
	f.mu.Unlock()
}

// Op is one recorded write to a FakeOutput.
type Op string

const (
	OpSet   Op = "set"
	OpClear Op = "clear"
)

// FakeOutput records every write.
type FakeOutput struct {
	mu sync.Mutex

	// Ops contains every write in order.
	Ops []Op

	// SetError, if set, will be returned by Set() (the write is still recorded).
	SetError error

	// ClearError, if set, will be returned by Clear().
	ClearError error
}

// NewFakeOutput creates an empty FakeOutput.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Set records a set.
func (f *FakeOutput) Set() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ops = append(f.Ops, OpSet)
	return f.SetError
}

// Clear records a clear.
func (f *FakeOutput) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Ops = append(f.Ops, OpClear)
	return f.ClearError
}

// High reports the level implied by the last write.
func (f *FakeOutput) High() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Ops) > 0 && f.Ops[len(f.Ops)-1] == OpSet
}

// Count returns how many times op was recorded.
func (f *FakeOutput) Count(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.Ops {
		if o == op {
			n++
		}
	}
	return n
}
