package sensor

import (
	"context"
	"sync"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/zone"
)

// Fake replays a scripted sequence of readings. The last reading repeats
// once the script is exhausted.
type Fake struct {
	mu    sync.Mutex
	steps []fakeStep
	last  zone.Temperature
	reads int
}

type fakeStep struct {
	t   zone.Temperature
	err error
}

// NewFake returns a fake that reports the given temperatures in °C.
func NewFake(celsius ...float64) *Fake {
	f := &Fake{}
	f.Push(celsius...)

	return f
}

// Push appends readings in °C.
func (f *Fake) Push(celsius ...float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range celsius {
		f.steps = append(f.steps, fakeStep{t: zone.FromCelsius(c)})
	}
}

// Fail appends one failed read.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err == nil {
		err = errors.New().New(ErrReadFailed)
	}
	f.steps = append(f.steps, fakeStep{err: err})
}

// Reads returns the number of reads served.
func (f *Fake) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.reads
}

func (f *Fake) ReadTemperature(ctx context.Context) (zone.Temperature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if err := ctx.Err(); err != nil {
		return 0, errors.New().Wrap(ErrReadFailed, err)
	}

	if len(f.steps) == 0 {
		return f.last, nil
	}

	step := f.steps[0]
	f.steps = f.steps[1:]
	if step.err != nil {
		return 0, step.err
	}
	f.last = step.t

	return step.t, nil
}
