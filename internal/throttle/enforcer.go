package throttle

import (
	"codeberg.org/mutker/thermalctl/internal/freq"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/zone"
)

// Policy is a cluster's frequency policy as proposed by the negotiation
// mechanism. UserMax is the ceiling the cluster had before any throttling
// and Table lists the steps the cluster can run at.
type Policy struct {
	Min     freq.Frequency
	Max     freq.Frequency
	UserMax freq.Frequency
	Table   freq.Table
}

// Enforcer clamps proposed policies to the active zone's target frequency.
type Enforcer struct {
	ctl     *Controller
	learned learnedCache
	log     logger.Logger
}

// NewEnforcer returns the enforcement hook for c.
func NewEnforcer(c *Controller) *Enforcer {
	return &Enforcer{
		ctl: c,
		log: logger.New().With("enforcer"),
	}
}

// Clamp applies the throttle to p for a cluster of the given family. It is
// safe to call from any number of goroutines.
func (e *Enforcer) Clamp(family freq.Family, p Policy) Policy {
	st := e.ctl.acknowledge()
	if !st.Active {
		return p
	}

	if st.Zone == zone.Unthrottled {
		e.log.Debug().
			Stringer("family", family).
			Uint32("max", uint32(p.UserMax)).
			Msg("Restoring unthrottled maximum")
		p.Max = p.UserMax
	} else {
		z, ok := e.ctl.zones.Lookup(st.Zone)
		if !ok {
			return p
		}

		target := e.learned.resolve(st.Zone, family, z.Target(family), p.Table)
		if p.Max > target {
			p.Max = target
		}
	}

	if p.Min > p.Max {
		p.Min = p.Max
	}

	return p
}

// Learned returns the snapped target last used for zone idx and family.
func (e *Enforcer) Learned(idx zone.Index, family freq.Family) (freq.Frequency, bool) {
	return e.learned.lookup(idx, family)
}
