package throttle

import (
	"sync"

	"codeberg.org/mutker/thermalctl/internal/freq"
	"codeberg.org/mutker/thermalctl/internal/zone"
)

type learnedKey struct {
	zone   zone.Index
	family freq.Family
}

type learnedEntry struct {
	requested freq.Frequency
	snapped   freq.Frequency
}

// learnedCache remembers the step a zone target snapped to. An entry is
// reused only while the configured target is unchanged and the step is
// valid for the caller's table.
type learnedCache struct {
	mu      sync.Mutex
	entries map[learnedKey]learnedEntry
}

func (lc *learnedCache) resolve(idx zone.Index, family freq.Family, requested freq.Frequency, table freq.Table) freq.Frequency {
	key := learnedKey{zone: idx, family: family}

	lc.mu.Lock()
	e, ok := lc.entries[key]
	lc.mu.Unlock()

	if ok && e.requested == requested && table.Contains(e.snapped) {
		return e.snapped
	}

	snapped, _ := table.Snap(requested)

	lc.mu.Lock()
	if lc.entries == nil {
		lc.entries = make(map[learnedKey]learnedEntry)
	}
	lc.entries[key] = learnedEntry{requested: requested, snapped: snapped}
	lc.mu.Unlock()

	return snapped
}

func (lc *learnedCache) lookup(idx zone.Index, family freq.Family) (freq.Frequency, bool) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	e, ok := lc.entries[learnedKey{zone: idx, family: family}]

	return e.snapped, ok
}
