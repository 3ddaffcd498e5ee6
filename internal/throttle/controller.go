// Package throttle runs the temperature sampler and the enforcement hook
// that turns the active thermal zone into per-cluster frequency ceilings.
package throttle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/zone"
)

// DefaultSamplingPeriod is used until SetSamplingPeriod is called.
const DefaultSamplingPeriod = 3000 * time.Millisecond

// Option configures a Controller.
type Option func(*Controller)

// WithSamplingPeriod sets the initial sampling period. Non-positive values
// are ignored.
func WithSamplingPeriod(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.period.Store(int64(d))
		}
	}
}

// WithEnabled sets whether Run starts sampling immediately.
func WithEnabled(on bool) Option {
	return func(c *Controller) {
		c.enabled = on
	}
}

// WithObserver registers an observer for completed samples.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observers = append(c.observers, o)
	}
}

// WithLogger replaces the default component logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// WithClock overrides the time source used to stamp samples.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller owns the throttle state for one sensor. The sampler is the only
// writer of the zone; the enforcement path only reads it and acknowledges a
// release by clearing the active flag.
type Controller struct {
	mu    sync.Mutex
	state State
	temp  zone.Temperature

	zones     *zone.Table
	sensor    Sensor
	reneg     Renegotiator
	observers []Observer
	log       logger.Logger
	now       func() time.Time

	period atomic.Int64

	// tickMu serialises sampling cycles with forced releases.
	tickMu sync.Mutex

	runMu   sync.Mutex
	enabled bool
	base    context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewController returns a controller in the Unthrottled state. Sampling
// begins once Run is called.
func NewController(zones *zone.Table, sensor Sensor, reneg Renegotiator, opts ...Option) *Controller {
	c := &Controller{
		state:   State{Zone: zone.Unthrottled},
		zones:   zones,
		sensor:  sensor,
		reneg:   reneg,
		log:     logger.New().With("throttle"),
		now:     time.Now,
		enabled: true,
	}
	c.period.Store(int64(DefaultSamplingPeriod))

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Zones returns the table the controller classifies against.
func (c *Controller) Zones() *zone.Table {
	return c.zones
}

// Snapshot returns the current zone and active flag as one consistent pair.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// SamplingPeriod returns the delay used when scheduling the next sample.
func (c *Controller) SamplingPeriod() time.Duration {
	return time.Duration(c.period.Load())
}

// SetSamplingPeriod changes the delay before the next scheduled sample. A
// sample that is already scheduled keeps its original deadline.
func (c *Controller) SetSamplingPeriod(d time.Duration) error {
	if d <= 0 {
		return errors.New().WithData(ErrInvalidPeriod, d.String())
	}

	c.period.Store(int64(d))
	c.log.Debug().Dur("period", d).Msg("Sampling period updated")

	return nil
}

// Enabled reports whether sampling is switched on.
func (c *Controller) Enabled() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	return c.enabled
}

// SetEnabled switches sampling on or off. Disabling waits for an in-flight
// sample to finish, releases the throttle and requests renegotiation; no
// sample runs after it returns. Enabling drops any pending sample and runs
// one immediately.
func (c *Controller) SetEnabled(on bool) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.enabled = on
	c.stopLocked()

	if on {
		if c.base != nil {
			c.startLocked()
		}
		c.log.Info().Msg("Thermal throttling enabled")

		return
	}

	c.release()
	c.log.Info().Msg("Thermal throttling disabled")
}

// Run samples until ctx is cancelled, then stops the loop and releases the
// throttle.
func (c *Controller) Run(ctx context.Context) error {
	c.runMu.Lock()
	if c.base != nil {
		c.runMu.Unlock()
		return errors.New().WithMessage(errors.ErrInvalidOperation, "controller is already running")
	}

	c.base = ctx
	if c.enabled {
		c.startLocked()
	}
	c.runMu.Unlock()

	c.log.Info().
		Bool("enabled", c.Enabled()).
		Dur("period", c.SamplingPeriod()).
		Int("zones", c.zones.Len()).
		Msg("Thermal controller started")

	<-ctx.Done()
	c.Stop()

	return nil
}

// Stop halts the sampling loop, releases the throttle and requests a final
// renegotiation so clamps are lifted. The enabled setting is left untouched.
func (c *Controller) Stop() {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.stopLocked()
	c.base = nil
	c.release()
}

func (c *Controller) startLocked() {
	ctx, cancel := context.WithCancel(c.base)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go c.loop(ctx, done)
}

func (c *Controller) stopLocked() {
	if c.cancel == nil {
		return
	}

	c.cancel()
	<-c.done
	c.cancel = nil
	c.done = nil
}

func (c *Controller) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}

		if _, err := c.Tick(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn().Err(err).Msg("Skipping temperature sample")
		}

		timer.Reset(c.SamplingPeriod())
	}
}

// Tick runs one sampling cycle: read the sensor, classify outside the lock,
// then publish the new zone. A sensor error leaves the state unchanged.
func (c *Controller) Tick(ctx context.Context) (Sample, error) {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	temp, err := c.sensor.ReadTemperature(ctx)
	if err != nil {
		return Sample{}, errors.New().Wrap(ErrSampleFailed, err)
	}

	c.mu.Lock()
	prev := c.state.Zone
	c.mu.Unlock()

	next := zone.Classify(temp, prev, c.zones.Effective())

	c.mu.Lock()
	c.temp = temp
	c.state.Zone = next
	if next != zone.Unthrottled {
		c.state.Active = true
	}
	st := c.state
	c.mu.Unlock()

	s := Sample{
		Time:        c.now(),
		Temperature: temp,
		Previous:    prev,
		Zone:        st.Zone,
		Active:      st.Active,
	}

	c.log.Debug().
		Stringer("temperature", temp).
		Stringer("zone", s.Zone).
		Stringer("previous_zone", prev).
		Bool("throttle_active", s.Active).
		Msg("Temperature sampled")

	// A pending release is not re-signalled here: the signal sent with the
	// zone change stays queued in the governor until a worker drains it.
	if s.Changed() {
		c.log.Info().
			Stringer("temperature", temp).
			Stringer("from", prev).
			Stringer("to", s.Zone).
			Msg("Thermal zone changed")
		c.reneg.Renegotiate()
	}

	for _, o := range c.observers {
		o.Observe(s)
	}

	return s, nil
}

// release forces the zone to Unthrottled and requests renegotiation. The
// active flag stays set until the enforcement path acknowledges it. Leaving
// a throttled zone is reported to observers as a sample carrying the last
// measured temperature.
func (c *Controller) release() {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	c.mu.Lock()
	prev := c.state.Zone
	temp := c.temp
	c.state.Zone = zone.Unthrottled
	c.mu.Unlock()

	if prev != zone.Unthrottled {
		c.log.Info().Stringer("from", prev).Msg("Throttle released")
	}

	c.reneg.Renegotiate()

	if prev == zone.Unthrottled {
		return
	}

	s := Sample{
		Time:        c.now(),
		Temperature: temp,
		Previous:    prev,
		Zone:        zone.Unthrottled,
	}
	for _, o := range c.observers {
		o.Observe(s)
	}
}

// acknowledge returns the state seen by the enforcement path. A pending
// release is completed in the same critical section.
func (c *Controller) acknowledge() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state
	if st.Active && st.Zone == zone.Unthrottled {
		c.state.Active = false
	}

	return st
}
