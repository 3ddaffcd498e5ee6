package metrics

import (
	"context"
	"time"

	"codeberg.org/mutker/thermalctl/internal/throttle"
	"codeberg.org/mutker/thermalctl/internal/zone"
)

// Collector records controller samples and answers history queries.
type Collector interface {
	throttle.Observer
	Record(ctx context.Context, snapshot *Snapshot) error
	Transitions(ctx context.Context, limit int) ([]Snapshot, error)
	Close() error
}

// Repository defines the interface for sample storage
type Repository interface {
	Record(snapshot *Snapshot) error
	Flush() error
	Recent(ctx context.Context, limit int, transitionsOnly bool) ([]Snapshot, error)
	Close() error
}

// Snapshot is one stored sample.
type Snapshot struct {
	Timestamp   time.Time
	Temperature zone.Temperature
	Previous    zone.Index
	Zone        zone.Index
	Active      bool
}

// FromSample converts a controller sample.
func FromSample(s throttle.Sample) *Snapshot {
	return &Snapshot{
		Timestamp:   s.Time,
		Temperature: s.Temperature,
		Previous:    s.Previous,
		Zone:        s.Zone,
		Active:      s.Active,
	}
}
