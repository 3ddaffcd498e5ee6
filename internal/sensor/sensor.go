// Package sensor provides temperature sources for the throttle controller.
package sensor

import (
	"context"
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/zone"
)

// Sensor reads the temperature the controller classifies.
type Sensor interface {
	ReadTemperature(ctx context.Context) (zone.Temperature, error)
}

// Closer is implemented by sensors holding a device handle.
type Closer interface {
	Close() error
}

// DefaultTimeout bounds a single read when wrapped with WithTimeout.
const DefaultTimeout = time.Second

type timeoutSensor struct {
	s Sensor
	d time.Duration
}

type reading struct {
	t   zone.Temperature
	err error
}

// WithTimeout bounds every read of s to d. A read that overruns is reported
// as ErrTimeout; its eventual result is discarded.
func WithTimeout(s Sensor, d time.Duration) Sensor {
	if d <= 0 {
		d = DefaultTimeout
	}

	return &timeoutSensor{s: s, d: d}
}

func (ts *timeoutSensor) ReadTemperature(ctx context.Context) (zone.Temperature, error) {
	ctx, cancel := context.WithTimeout(ctx, ts.d)
	defer cancel()

	ch := make(chan reading, 1)
	go func() {
		t, err := ts.s.ReadTemperature(ctx)
		ch <- reading{t: t, err: err}
	}()

	select {
	case r := <-ch:
		return r.t, r.err
	case <-ctx.Done():
		return 0, errors.New().Wrap(ErrTimeout, ctx.Err())
	}
}

func (ts *timeoutSensor) Close() error {
	if c, ok := ts.s.(Closer); ok {
		return c.Close()
	}

	return nil
}
