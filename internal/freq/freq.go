// Package freq models the discrete frequency steps a processing cluster can
// run at and snaps arbitrary requests onto them.
package freq

import (
	"fmt"
	"slices"
	"sort"

	"codeberg.org/mutker/thermalctl/internal/errors"
)

// Frequency is a clock frequency in kHz, the unit cpufreq uses.
type Frequency uint32

// Family identifies which per-zone target frequency applies to a cluster.
type Family int

const (
	Little Family = iota
	Big

	// NumFamilies is the number of cluster families a zone carries a target for.
	NumFamilies = 2
)

func (f Family) String() string {
	switch f {
	case Little:
		return "little"
	case Big:
		return "big"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// Table is an ascending, duplicate-free list of valid frequency steps.
// The zero value is not usable; build one with NewTable.
type Table struct {
	steps []Frequency
}

// NewTable builds a table from steps in any order. Duplicates are dropped.
func NewTable(steps []Frequency) (Table, error) {
	if len(steps) == 0 {
		return Table{}, errors.New().New(ErrEmptyTable)
	}

	sorted := slices.Clone(steps)
	slices.Sort(sorted)

	return Table{steps: slices.Compact(sorted)}, nil
}

// MustTable is NewTable for static tables; it panics on an empty list.
func MustTable(steps ...Frequency) Table {
	t, err := NewTable(steps)
	if err != nil {
		panic(err)
	}

	return t
}

// Len returns the number of steps.
func (t Table) Len() int {
	return len(t.steps)
}

// Steps returns a copy of the steps in ascending order.
func (t Table) Steps() []Frequency {
	return slices.Clone(t.steps)
}

// Lowest returns the lowest valid step.
func (t Table) Lowest() Frequency {
	return t.steps[0]
}

// Highest returns the highest valid step.
func (t Table) Highest() Frequency {
	return t.steps[len(t.steps)-1]
}

// Contains reports whether f is exactly one of the steps.
func (t Table) Contains(f Frequency) bool {
	_, found := slices.BinarySearch(t.steps, f)
	return found
}

// Snap returns the smallest step at or above requested, bounded to the
// table's range. The bool reports whether the result differs from requested.
func (t Table) Snap(requested Frequency) (Frequency, bool) {
	if len(t.steps) == 0 {
		return requested, false
	}

	i := sort.Search(len(t.steps), func(i int) bool {
		return t.steps[i] >= requested
	})
	if i == len(t.steps) {
		return t.Highest(), true
	}

	return t.steps[i], t.steps[i] != requested
}
