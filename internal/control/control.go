// Package control exposes the controller's runtime knobs as string keys,
// one value per key, the way a sysfs attribute directory would.
package control

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/freq"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/throttle"
	"codeberg.org/mutker/thermalctl/internal/zone"
)

const (
	KeyEnabled    = "enabled"
	KeySamplingMS = "sampling_ms"

	zonePrefix = "zone"
)

// ZoneKey returns the key for zone slot i.
func ZoneKey(i int) string {
	return fmt.Sprintf("%s%02d", zonePrefix, i)
}

// Surface reads and writes controller settings by key. Each write takes
// effect on its own; zone writes are not checked against neighbouring zones.
type Surface struct {
	ctl    *throttle.Controller
	logger logger.Logger
}

// New returns the surface for ctl.
func New(ctl *throttle.Controller, log logger.Logger) *Surface {
	return &Surface{ctl: ctl, logger: log}
}

// Keys lists every key in a stable order.
func (s *Surface) Keys() []string {
	keys := []string{KeyEnabled, KeySamplingMS}
	for i := 0; i < zone.MaxZones; i++ {
		keys = append(keys, ZoneKey(i))
	}

	return keys
}

// Get returns the current value of key.
func (s *Surface) Get(key string) (string, error) {
	switch key {
	case KeyEnabled:
		if s.ctl.Enabled() {
			return "1", nil
		}
		return "0", nil
	case KeySamplingMS:
		return strconv.FormatInt(s.ctl.SamplingPeriod().Milliseconds(), 10), nil
	}

	i, err := zoneIndex(key)
	if err != nil {
		return "", err
	}

	z, ok, err := s.ctl.Zones().Get(i)
	if err != nil {
		return "", err
	}
	if !ok {
		return FormatZone(zone.Zone{}), nil
	}

	return FormatZone(z), nil
}

// Set writes value to key. A zone tuple with a zero little-cluster
// frequency unconfigures the slot.
func (s *Surface) Set(key, value string) error {
	errFactory := errors.New()
	value = strings.TrimSpace(value)

	switch key {
	case KeyEnabled:
		on, err := parseBool(value)
		if err != nil {
			return err
		}
		s.ctl.SetEnabled(on)
		return nil

	case KeySamplingMS:
		ms, err := strconv.ParseUint(value, 10, 32)
		if err != nil || ms == 0 {
			return errFactory.WithData(ErrInvalidValue, struct {
				Key   string
				Value string
			}{
				Key:   key,
				Value: value,
			})
		}
		return s.ctl.SetSamplingPeriod(time.Duration(ms) * time.Millisecond)
	}

	i, err := zoneIndex(key)
	if err != nil {
		return err
	}

	z, err := ParseZone(value)
	if err != nil {
		return err
	}

	return s.SetZone(i, z)
}

// SetZone configures slot i, or clears it when z has no little-cluster
// frequency.
func (s *Surface) SetZone(i int, z zone.Zone) error {
	table := s.ctl.Zones()

	if z.FreqLittle == 0 {
		if err := table.Clear(i); err != nil {
			return err
		}
		s.logger.Info().Int("zone", i).Msg("Thermal zone cleared")
		return nil
	}

	if err := table.Set(i, z); err != nil {
		return err
	}

	s.logger.Info().
		Int("zone", i).
		Uint32("freq_little", uint32(z.FreqLittle)).
		Uint32("freq_big", uint32(z.FreqBig)).
		Stringer("trip", z.Trip).
		Stringer("reset", z.Reset).
		Msg("Thermal zone configured")

	if err := table.Validate(); err != nil {
		s.logger.Warn().Err(err).Msg("Zone table is misordered; some zones may be unreachable")
	}

	return nil
}

// FormatZone renders a zone as "<freq_little> <freq_big> <trip> <reset>"
// with frequencies in kHz and temperatures in °C.
func FormatZone(z zone.Zone) string {
	return fmt.Sprintf("%d %d %s %s",
		z.FreqLittle,
		z.FreqBig,
		strconv.FormatFloat(z.Trip.Celsius(), 'f', -1, 64),
		strconv.FormatFloat(z.Reset.Celsius(), 'f', -1, 64),
	)
}

// ParseZone parses the tuple written by FormatZone.
func ParseZone(value string) (zone.Zone, error) {
	errFactory := errors.New()

	invalid := func(reason string) error {
		return errFactory.WithData(zone.ErrInvalidTuple, struct {
			Value  string
			Reason string
		}{
			Value:  value,
			Reason: reason,
		})
	}

	fields := strings.Fields(value)
	if len(fields) != 4 {
		return zone.Zone{}, invalid("expected 4 fields")
	}

	little, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return zone.Zone{}, invalid("freq_little: " + err.Error())
	}
	big, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return zone.Zone{}, invalid("freq_big: " + err.Error())
	}
	trip, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return zone.Zone{}, invalid("trip: " + err.Error())
	}
	reset, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return zone.Zone{}, invalid("reset: " + err.Error())
	}

	return zone.Zone{
		FreqLittle: freq.Frequency(little),
		FreqBig:    freq.Frequency(big),
		Trip:       zone.FromCelsius(trip),
		Reset:      zone.FromCelsius(reset),
	}, nil
}

func zoneIndex(key string) (int, error) {
	errFactory := errors.New()

	digits, ok := strings.CutPrefix(key, zonePrefix)
	if !ok || digits == "" {
		return 0, errFactory.WithData(ErrUnknownKey, key)
	}

	i, err := strconv.Atoi(digits)
	if err != nil || i < 0 {
		return 0, errFactory.WithData(ErrUnknownKey, key)
	}
	if i >= zone.MaxZones {
		return 0, errFactory.WithData(zone.ErrCapacityExceeded, struct {
			Index    int
			MaxZones int
		}{
			Index:    i,
			MaxZones: zone.MaxZones,
		})
	}

	return i, nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "1", "y", "yes", "on", "true":
		return true, nil
	case "0", "n", "no", "off", "false":
		return false, nil
	default:
		return false, errors.New().WithData(ErrInvalidValue, struct {
			Key   string
			Value string
		}{
			Key:   KeyEnabled,
			Value: value,
		})
	}
}
