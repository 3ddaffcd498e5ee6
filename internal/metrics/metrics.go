package metrics

import (
	"context"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/throttle"
)

type service struct {
	repo   Repository
	cfg    Config
	logger logger.Logger
}

// No-op implementation
type noopCollector struct{}

func NewService(cfg Config, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If metrics is disabled, return a no-op collector
	if !cfg.Enabled {
		log.Debug().Msg("Metrics collection disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create metrics repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Bool("enabled", cfg.Enabled).
		Msg("Metrics service initialized successfully")

	return &service{
		repo:   repo,
		cfg:    cfg,
		logger: log,
	}, nil
}

func (s *service) Record(ctx context.Context, snapshot *Snapshot) error {
	errFactory := errors.New()

	if snapshot == nil || !snapshot.Zone.Valid() || !snapshot.Previous.Valid() {
		return errFactory.New(ErrInvalidMetrics)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(snapshot); err != nil {
			return errFactory.Wrap(ErrMetricsCollection, err)
		}
	}

	return nil
}

// Observe records a controller sample. Failures are logged, not returned,
// so a broken database never stalls sampling.
func (s *service) Observe(sample throttle.Sample) {
	if err := s.Record(context.Background(), FromSample(sample)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record sample")
	}
}

// Transitions returns up to limit of the most recent zone changes, newest
// first. Buffered samples are written out before the query.
func (s *service) Transitions(ctx context.Context, limit int) ([]Snapshot, error) {
	if err := s.repo.Flush(); err != nil {
		return nil, err
	}

	return s.repo.Recent(ctx, limit, true)
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(ErrServiceShutdown, err)
	}
	return nil
}

// No-op implementation
func (*noopCollector) Record(_ context.Context, _ *Snapshot) error {
	return nil
}

func (*noopCollector) Observe(throttle.Sample) {}

func (*noopCollector) Transitions(context.Context, int) ([]Snapshot, error) {
	return nil, nil
}

func (*noopCollector) Close() error {
	return nil
}
