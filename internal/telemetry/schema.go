package telemetry

import (
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"codeberg.org/mutker/thermalctl/internal/throttle"
)

// Measurement is the InfluxDB measurement samples are written to.
const Measurement = "thermal_sample"

// NewPoint converts a sample into a point tagged with host and zone.
func NewPoint(host string, s throttle.Sample) *write.Point {
	tags := map[string]string{
		"zone": s.Zone.String(),
	}
	if host != "" {
		tags["host"] = host
	}

	fields := map[string]any{
		"temperature":     s.Temperature.Celsius(),
		"zone_index":      int(s.Zone),
		"previous_zone":   int(s.Previous),
		"throttle_active": s.Active,
		"zone_changed":    s.Changed(),
	}

	return write.NewPoint(Measurement, tags, fields, s.Time)
}
