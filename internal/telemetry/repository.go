package telemetry

import (
	"context"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/domain"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/logger"
)

const healthTimeout = 10 * time.Second

// connect opens a client, checks the server's health and returns the
// asynchronous write API for the configured bucket.
func connect(ctx context.Context, cfg Config, log logger.Logger) (influxdb2.Client, pointWriter, error) {
	errFactory := errors.New()

	opts := influxdb2.DefaultOptions().
		SetBatchSize(cfg.BatchSize).
		SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, nil, errFactory.Wrap(ErrHealthCheck, err)
	}
	if health.Status != domain.HealthCheckStatusPass {
		client.Close()
		msg := string(health.Status)
		if health.Message != nil {
			msg += ": " + *health.Message
		}
		return nil, nil, errFactory.WithMessage(ErrHealthCheck, "influxdb unhealthy: "+msg)
	}

	log.Info().
		Str("url", cfg.URL).
		Str("org", cfg.Org).
		Str("bucket", cfg.Bucket).
		Msg("Connected to InfluxDB")

	return client, client.WriteAPI(cfg.Org, cfg.Bucket), nil
}
