package zone

import (
	"sync"

	"codeberg.org/mutker/thermalctl/internal/errors"
)

type slot struct {
	zone       Zone
	configured bool
}

// Table is the bounded, concurrently writable set of zone slots. The
// effective zone sequence is the run of configured slots starting at 0.
type Table struct {
	mu    sync.RWMutex
	slots [MaxZones]slot
}

// NewTable returns a table with zones configured into slots 0..len-1.
func NewTable(zones ...Zone) (*Table, error) {
	t := &Table{}
	for i, z := range zones {
		if err := t.Set(i, z); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func checkIndex(i int) error {
	if i < 0 || i >= MaxZones {
		return errors.New().WithData(ErrCapacityExceeded, struct {
			Index    int
			MaxZones int
		}{
			Index:    i,
			MaxZones: MaxZones,
		})
	}

	return nil
}

// Set configures slot i. Ordering against neighbours is not checked.
func (t *Table) Set(i int, z Zone) error {
	if err := checkIndex(i); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[i] = slot{zone: z, configured: true}

	return nil
}

// Clear unconfigures slot i, truncating the effective sequence there.
func (t *Table) Clear(i int) error {
	if err := checkIndex(i); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots[i] = slot{}

	return nil
}

// Get returns slot i and whether it is configured.
func (t *Table) Get(i int) (Zone, bool, error) {
	if err := checkIndex(i); err != nil {
		return Zone{}, false, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.slots[i]

	return s.zone, s.configured, nil
}

// Lookup returns the zone at idx if it is part of the effective sequence.
func (t *Table) Lookup(idx Index) (Zone, bool) {
	if idx < 0 || int(idx) >= MaxZones {
		return Zone{}, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := 0; i <= int(idx); i++ {
		if !t.slots[i].configured {
			return Zone{}, false
		}
	}

	return t.slots[idx].zone, true
}

// Effective returns a copy of the configured zones up to the first gap.
func (t *Table) Effective() []Zone {
	t.mu.RLock()
	defer t.mu.RUnlock()

	zones := make([]Zone, 0, MaxZones)
	for _, s := range t.slots {
		if !s.configured {
			break
		}
		zones = append(zones, s.zone)
	}

	return zones
}

// Len returns the length of the effective sequence.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for n < MaxZones && t.slots[n].configured {
		n++
	}

	return n
}

// Validate checks the ordering of the effective sequence.
func (t *Table) Validate() error {
	return Validate(t.Effective())
}
