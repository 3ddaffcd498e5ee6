// Package gpio drives an optional output line that mirrors whether the
// throttle is active, for an LED or an external fan controller.
package gpio

import (
	"sync"

	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/throttle"
)

// DefaultChip is the character device used when none is configured.
const DefaultChip = "gpiochip0"

// Indicator is a single output line.
type Indicator interface {
	// Set drives the line high when active is true.
	Set(active bool) error

	// Close drives the line low and releases it.
	Close() error
}

// Observer mirrors the throttle active flag onto an Indicator. The line is
// only written when the flag changes.
type Observer struct {
	ind    Indicator
	logger logger.Logger

	mu    sync.Mutex
	known bool
	last  bool
}

// NewObserver returns an observer driving ind.
func NewObserver(ind Indicator, log logger.Logger) *Observer {
	return &Observer{ind: ind, logger: log}
}

func (o *Observer) Observe(s throttle.Sample) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.known && o.last == s.Active {
		return
	}

	if err := o.ind.Set(s.Active); err != nil {
		o.logger.Warn().Err(err).Bool("active", s.Active).Msg("Failed to drive indicator line")
		return
	}

	o.known = true
	o.last = s.Active
}
