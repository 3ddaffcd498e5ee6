package cpufreq

import (
	"context"
	"sync"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/freq"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/throttle"
)

// Clamper adjusts a proposed policy for a cluster family.
type Clamper interface {
	Clamp(family freq.Family, p throttle.Policy) throttle.Policy
}

// Governor renegotiates cluster limits. Each cluster has its own worker;
// renegotiation requests are coalesced so a burst of zone changes costs a
// single pass per cluster.
type Governor struct {
	clusters []*Cluster
	workers  []*worker
	log      logger.Logger

	mu      sync.Mutex
	clamper Clamper
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type worker struct {
	cluster *Cluster
	signal  chan struct{}

	// applied is what was last written to sysfs.
	applied Limits
}

// NewGovernor prepares workers for clusters. Requests made before Start are
// kept and served once the workers run.
func NewGovernor(clusters []*Cluster, log logger.Logger) *Governor {
	g := &Governor{
		clusters: clusters,
		log:      log,
	}

	for _, c := range clusters {
		g.workers = append(g.workers, &worker{
			cluster: c,
			signal:  make(chan struct{}, 1),
			applied: c.User,
		})
	}

	return g
}

// Clusters returns the managed clusters.
func (g *Governor) Clusters() []*Cluster {
	return g.clusters
}

// Start launches one worker per cluster. Each worker runs a pass right away
// so limits reflect the current throttle state.
func (g *Governor) Start(ctx context.Context, clamper Clamper) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cancel != nil {
		return errors.New().WithMessage(errors.ErrInvalidOperation, "governor is already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.clamper = clamper

	for _, w := range g.workers {
		g.wg.Add(1)
		go g.run(ctx, w)
	}

	return nil
}

// Renegotiate asks every cluster to re-evaluate its limits. It never blocks.
func (g *Governor) Renegotiate() {
	for _, w := range g.workers {
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

// Stop terminates the workers and waits for them.
func (g *Governor) Stop() {
	g.mu.Lock()
	cancel := g.cancel
	g.cancel = nil
	g.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	g.wg.Wait()
}

// Restore writes every cluster's discovered limits back. Call it after Stop.
func (g *Governor) Restore() error {
	var errs []error
	for _, w := range g.workers {
		if err := w.write(w.cluster.User); err != nil {
			errs = append(errs, err)
			continue
		}
		g.log.Debug().Str("policy", w.cluster.Name).Msg("Restored frequency limits")
	}

	return errors.Join(errs...)
}

func (g *Governor) run(ctx context.Context, w *worker) {
	defer g.wg.Done()

	g.apply(w)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.signal:
			g.apply(w)
		}
	}
}

func (g *Governor) apply(w *worker) {
	c := w.cluster

	p := g.clamper.Clamp(c.Family, throttle.Policy{
		Min:     c.User.Min,
		Max:     c.User.Max,
		UserMax: c.User.Max,
		Table:   c.Table,
	})

	next := Limits{Min: p.Min, Max: p.Max}
	if next == w.applied {
		return
	}

	if err := w.write(next); err != nil {
		g.log.Error().Err(err).Str("policy", c.Name).Msg("Failed to apply frequency limits")
		return
	}

	g.log.Info().
		Str("policy", c.Name).
		Stringer("family", c.Family).
		Uint32("min", uint32(next.Min)).
		Uint32("max", uint32(next.Max)).
		Msg("Frequency limits applied")
}

// write updates scaling limits in an order that never leaves min above max.
func (w *worker) write(l Limits) error {
	dir := w.cluster.Path

	first, second := "scaling_max_freq", "scaling_min_freq"
	firstVal, secondVal := l.Max, l.Min
	if l.Max < w.applied.Max {
		first, second = second, first
		firstVal, secondVal = secondVal, firstVal
	}

	if err := writeFreq(dir, first, firstVal); err != nil {
		return err
	}
	if err := writeFreq(dir, second, secondVal); err != nil {
		return err
	}

	w.applied = l

	return nil
}
