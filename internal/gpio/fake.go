package gpio

import "sync"

// FakeIndicator records line writes for tests.
type FakeIndicator struct {
	mu     sync.Mutex
	writes []bool
	closed bool

	// SetError, if set, will be returned by Set.
	SetError error
}

// NewFakeIndicator creates a FakeIndicator.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

func (f *FakeIndicator) Set(active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SetError != nil {
		return f.SetError
	}
	f.writes = append(f.writes, active)

	return nil
}

// Writes returns the values written so far.
func (f *FakeIndicator) Writes() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]bool(nil), f.writes...)
}

func (f *FakeIndicator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeIndicator) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}
