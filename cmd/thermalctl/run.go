package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/thermalctl/internal/config"
	"codeberg.org/mutker/thermalctl/internal/control"
	"codeberg.org/mutker/thermalctl/internal/cpufreq"
	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/events"
	"codeberg.org/mutker/thermalctl/internal/gpio"
	"codeberg.org/mutker/thermalctl/internal/gpu"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/metrics"
	"codeberg.org/mutker/thermalctl/internal/pid"
	"codeberg.org/mutker/thermalctl/internal/sensor"
	"codeberg.org/mutker/thermalctl/internal/telemetry"
	"codeberg.org/mutker/thermalctl/internal/throttle"
	"github.com/spf13/cobra"
)

const eventQueueSize = 32

func newRunCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the throttling daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader, cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			return run(ctx, loader, cfg)
		},
	}

	cmd.Flags().Bool("enabled", true, "Start with throttling enabled")
	cmd.Flags().Int("sampling-ms", config.DefaultSamplingMS, "Sampling period in milliseconds")

	return cmd
}

// closer pairs a resource with the name used when logging its shutdown.
type closer struct {
	name  string
	close func() error
}

func run(ctx context.Context, loader *config.Loader, cfg *config.Config) error {
	errFactory := errors.New()
	log := logger.New()

	if err := pid.Write(cfg.PIDFile); err != nil {
		return err
	}
	defer func() {
		if err := pid.Remove(cfg.PIDFile); err != nil {
			log.Warn().Err(err).Msg("Failed to remove PID file")
		}
	}()

	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].close(); err != nil {
				log.Warn().Err(err).Str("resource", closers[i].name).Msg("Shutdown failed")
			}
		}
	}()

	zones, err := cfg.ZoneTable()
	if err != nil {
		return errFactory.Wrap(errors.ErrInvalidZoneTable, err)
	}
	if err := zones.Validate(); err != nil {
		log.Warn().Err(err).Msg("Zone table is misordered; some zones may be unreachable")
	}

	temp, err := openSensor(cfg, log)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	if c, ok := temp.(sensor.Closer); ok {
		closers = append(closers, closer{"sensor", c.Close})
	}

	littleCPUs, err := cfg.LittleCPUs()
	if err != nil {
		return err
	}
	clusters, err := cpufreq.Discover(cfg.CPUFreq.Root, littleCPUs, log.With("cpufreq"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}
	gov := cpufreq.NewGovernor(clusters, log.With("governor"))

	observers, obsClosers, err := openObservers(ctx, cfg, log)
	closers = append(closers, obsClosers...)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	opts := []throttle.Option{
		throttle.WithSamplingPeriod(cfg.SamplingPeriod()),
		throttle.WithEnabled(cfg.Enabled),
		throttle.WithLogger(log.With("throttle")),
	}
	for _, o := range observers {
		opts = append(opts, throttle.WithObserver(o))
	}

	ctl := throttle.NewController(zones, temp, gov, opts...)
	if err := gov.Start(ctx, throttle.NewEnforcer(ctl)); err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	surface := control.New(ctl, log.With("control"))
	if loader.ConfigFile() != "" {
		err := loader.Watch(ctx, func(next *config.Config) {
			applyConfig(surface, next, log)
		}, func(err error) {
			log.Warn().Err(err).Msg("Ignoring invalid configuration change")
		})
		if err != nil {
			log.Warn().Err(err).Msg("Live reconfiguration unavailable")
		}
	}

	go handleSignals(ctx, surface, log)

	runErr := ctl.Run(ctx)

	gov.Stop()
	if err := gov.Restore(); err != nil {
		log.Error().Err(err).Msg("Failed to restore frequency limits")
		if runErr == nil {
			runErr = errFactory.Wrap(errors.ErrRestorePolicy, err)
		}
	}
	log.Info().Msg("Exiting...")

	return runErr
}

func openSensor(cfg *config.Config, log logger.Logger) (throttle.Sensor, error) {
	var s sensor.Sensor

	switch cfg.Sensor.Type {
	case config.SensorNVML:
		g, err := gpu.NewSensor(cfg.GPU(), log.With("gpu"))
		if err != nil {
			return nil, err
		}
		s = g
	case config.SensorSysfs:
		path, err := sensor.ResolveThermalZone(sensor.DefaultThermalRoot, cfg.Sensor.Path)
		if err != nil {
			return nil, err
		}
		sysfs, err := sensor.NewSysfs(path, cfg.Sensor.Scale)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", sysfs.Path()).Msg("Using thermal zone sensor")
		s = sysfs
	default:
		return nil, errors.New().WithData(sensor.ErrUnknownType, cfg.Sensor.Type)
	}

	return sensor.WithTimeout(s, cfg.SensorTimeout()), nil
}

// openObservers builds the sample consumers enabled in cfg. Closers for
// everything opened are returned even on error.
func openObservers(ctx context.Context, cfg *config.Config, log logger.Logger) ([]throttle.Observer, []closer, error) {
	var (
		observers []throttle.Observer
		closers   []closer
	)

	collector, err := metrics.NewService(cfg.MetricsConfig(), log.With("metrics"))
	if err != nil {
		return nil, closers, err
	}
	observers = append(observers, collector)
	closers = append(closers, closer{"metrics", collector.Close})

	exporter, err := telemetry.NewService(ctx, cfg.TelemetryConfig(), log.With("telemetry"))
	if err != nil {
		return nil, closers, err
	}
	observers = append(observers, exporter)
	closers = append(closers, closer{"telemetry", exporter.Close})

	if cfg.MQTT.Enabled {
		pub, err := events.NewRealPublisher(cfg.EventsConfig(), log.With("events"))
		if err != nil {
			return nil, closers, err
		}
		notifier := events.NewNotifier(pub, eventQueueSize, log.With("events"))
		observers = append(observers, notifier)
		closers = append(closers, closer{"events", notifier.Close})
	}

	if cfg.Indicator.Enabled {
		ind, err := gpio.NewRealIndicator(cfg.Indicator.Chip, cfg.Indicator.Line)
		if err != nil {
			return nil, closers, err
		}
		observers = append(observers, gpio.NewObserver(ind, log.With("gpio")))
		closers = append(closers, closer{"indicator", ind.Close})
	}

	return observers, closers, nil
}

// handleSignals logs every control key on SIGUSR1 until ctx is done.
func handleSignals(ctx context.Context, surface *control.Surface, log logger.Logger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigs:
			logState(surface, log)
		}
	}
}

func logState(surface *control.Surface, log logger.Logger) {
	event := log.Info()
	for _, key := range surface.Keys() {
		value, err := surface.Get(key)
		if err != nil {
			continue
		}
		event.Str(key, value)
	}
	event.Msg("Controller state")
}
