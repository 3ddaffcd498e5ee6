package main

import (
	"strconv"

	"codeberg.org/mutker/thermalctl/internal/config"
	"codeberg.org/mutker/thermalctl/internal/control"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/zone"
)

// desiredValues renders cfg as control key values. Zone slots past the
// configured list are cleared.
func desiredValues(cfg *config.Config) map[string]string {
	values := map[string]string{
		control.KeyEnabled:    "0",
		control.KeySamplingMS: strconv.Itoa(cfg.SamplingMS),
	}
	if cfg.Enabled {
		values[control.KeyEnabled] = "1"
	}

	for i := 0; i < zone.MaxZones; i++ {
		z := zone.Zone{}
		if i < len(cfg.Zones) {
			z = cfg.Zones[i].Zone()
		}
		values[control.ZoneKey(i)] = control.FormatZone(z)
	}

	return values
}

// applyConfig writes every changed key through the control surface, so a
// file edit behaves like a runtime write. Zones go first and enabled last
// so a re-enable samples against the new table.
func applyConfig(surface *control.Surface, cfg *config.Config, log logger.Logger) {
	values := desiredValues(cfg)

	order := make([]string, 0, zone.MaxZones+2)
	for i := 0; i < zone.MaxZones; i++ {
		order = append(order, control.ZoneKey(i))
	}
	order = append(order, control.KeySamplingMS, control.KeyEnabled)

	for _, key := range order {
		want := values[key]

		current, err := surface.Get(key)
		if err == nil && current == want {
			continue
		}

		if err := surface.Set(key, want); err != nil {
			log.Warn().Err(err).Str("key", key).Str("value", want).Msg("Failed to apply configuration change")
		}
	}

	log.Info().Msg("Configuration reloaded")
}
