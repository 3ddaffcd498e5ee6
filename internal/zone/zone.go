// Package zone holds the thermal zone table and the hysteresis classifier
// that maps a temperature sample onto it.
package zone

import (
	"fmt"
	"math"
	"strconv"

	"codeberg.org/mutker/thermalctl/internal/freq"
)

// MaxZones is the fixed capacity of a zone table.
const MaxZones = 16

// Temperature is a reading in hundredths of a degree Celsius.
type Temperature int64

// FromCelsius converts degrees Celsius, rounding to the nearest hundredth.
func FromCelsius(c float64) Temperature {
	return Temperature(math.Round(c * 100))
}

// FromMilliCelsius converts a millidegree reading as reported by sysfs.
func FromMilliCelsius(mc int64) Temperature {
	if mc < 0 {
		return Temperature((mc - 5) / 10)
	}

	return Temperature((mc + 5) / 10)
}

// Celsius returns the temperature in degrees Celsius.
func (t Temperature) Celsius() float64 {
	return float64(t) / 100
}

func (t Temperature) String() string {
	return strconv.FormatFloat(t.Celsius(), 'f', -1, 64) + "°C"
}

// Index names the active zone. Unthrottled means no clamping applies.
type Index int

const Unthrottled Index = -1

func (i Index) String() string {
	if i == Unthrottled {
		return "unthrottled"
	}

	return fmt.Sprintf("zone%02d", int(i))
}

// Valid reports whether i is Unthrottled or a slot inside the table bounds.
func (i Index) Valid() bool {
	return i == Unthrottled || (i >= 0 && i < MaxZones)
}

// Zone is one configured thermal zone.
type Zone struct {
	FreqLittle freq.Frequency
	FreqBig    freq.Frequency
	Trip       Temperature
	Reset      Temperature
}

// Target returns the zone's frequency ceiling for the given cluster family.
func (z Zone) Target(f freq.Family) freq.Frequency {
	if f == freq.Big {
		return z.FreqBig
	}

	return z.FreqLittle
}

// WithTarget returns a copy of z with the target for f replaced.
func (z Zone) WithTarget(f freq.Family, v freq.Frequency) Zone {
	if f == freq.Big {
		z.FreqBig = v
	} else {
		z.FreqLittle = v
	}

	return z
}
