package telemetry

import (
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
)

const (
	defaultURL           = "http://localhost:8086"
	defaultBucket        = "thermalctl"
	defaultFlushInterval = 10 * time.Second
	defaultBatchSize     = 50
)

type Config struct {
	Enabled bool
	URL     string
	Token   string
	Org     string
	Bucket  string
	// Host is added as a tag to every point. Defaults to the hostname.
	Host          string
	FlushInterval time.Duration
	BatchSize     uint
}

func DefaultConfig() Config {
	return Config{
		URL:           defaultURL,
		Bucket:        defaultBucket,
		FlushInterval: defaultFlushInterval,
		BatchSize:     defaultBatchSize,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if !c.Enabled {
		return nil
	}
	if c.URL == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "telemetry url is required")
	}
	if c.Org == "" || c.Bucket == "" {
		return errFactory.WithMessage(ErrInvalidConfig, "telemetry org and bucket are required")
	}

	return nil
}
