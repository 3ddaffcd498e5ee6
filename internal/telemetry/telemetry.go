package telemetry

import (
	"context"
	"os"
	"sync"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/throttle"
)

type service struct {
	client influxdb2.Client
	writer pointWriter
	host   string
	logger logger.Logger

	closeOnce sync.Once
}

type noopExporter struct{}

// NewService connects to InfluxDB when telemetry is enabled and returns a
// no-op exporter otherwise.
func NewService(ctx context.Context, cfg Config, log logger.Logger) (Exporter, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Telemetry disabled, using no-op exporter")
		return &noopExporter{}, nil
	}

	client, writer, err := connect(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	s := newService(writer, cfg.Host, log)
	s.client = client

	return s, nil
}

func newService(writer pointWriter, host string, log logger.Logger) *service {
	if host == "" {
		host, _ = os.Hostname()
	}

	s := &service{
		writer: writer,
		host:   host,
		logger: log,
	}
	go s.drainErrors()

	return s
}

// drainErrors logs asynchronous write failures until the writer is closed.
func (s *service) drainErrors() {
	for err := range s.writer.Errors() {
		s.logger.Warn().Err(errors.New().Wrap(ErrWriteFailed, err)).Msg("Telemetry write failed")
	}
}

func (s *service) Observe(sample throttle.Sample) {
	s.writer.WritePoint(NewPoint(s.host, sample))
}

func (s *service) Close() error {
	s.closeOnce.Do(func() {
		s.writer.Flush()
		if s.client != nil {
			s.client.Close()
		}
		s.logger.Debug().Msg("Telemetry exporter closed")
	})

	return nil
}

func (*noopExporter) Observe(throttle.Sample) {}

func (*noopExporter) Close() error {
	return nil
}
