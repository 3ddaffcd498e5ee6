package telemetry

import (
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"codeberg.org/mutker/thermalctl/internal/throttle"
)

// Exporter ships controller samples to a time-series database.
type Exporter interface {
	throttle.Observer
	Close() error
}

// pointWriter is the part of the asynchronous InfluxDB write API the
// exporter uses.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
	Errors() <-chan error
}
