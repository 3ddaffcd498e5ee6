package throttle

import (
	"context"
	"time"

	"codeberg.org/mutker/thermalctl/internal/zone"
)

// Sensor supplies the temperature the controller classifies. Read errors
// are transient: the cycle is skipped and the next one runs as scheduled.
type Sensor interface {
	ReadTemperature(ctx context.Context) (zone.Temperature, error)
}

// Renegotiator asks the frequency-policy mechanism to re-run Clamp for every
// active cluster. It must not block on the renegotiation itself.
type Renegotiator interface {
	Renegotiate()
}

// RenegotiatorFunc adapts a function to Renegotiator.
type RenegotiatorFunc func()

func (f RenegotiatorFunc) Renegotiate() { f() }

// State is the pair shared between the sampler and the enforcement path.
// Both fields are always read and written together.
type State struct {
	Zone   zone.Index
	Active bool
}

// Sample describes one completed sampling cycle. A forced release is
// reported with Active false since the clamps are lifted on the
// renegotiation it requests.
type Sample struct {
	Time        time.Time
	Temperature zone.Temperature
	Previous    zone.Index
	Zone        zone.Index
	Active      bool
}

// Changed reports whether the cycle moved the controller to another zone.
func (s Sample) Changed() bool {
	return s.Previous != s.Zone
}

// Observer receives every completed sample. Observers run on the sampler
// goroutine and must return quickly.
type Observer interface {
	Observe(Sample)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Sample)

func (f ObserverFunc) Observe(s Sample) { f(s) }
