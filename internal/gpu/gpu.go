// Package gpu reads the GPU die temperature through NVML so a graphics
// card can drive the thermal zones instead of a sysfs sensor.
package gpu

import (
	"context"
	"sync"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/zone"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// Config selects the device and smoothing for a Sensor.
type Config struct {
	// Index of the device, used when UUID is empty.
	Index int
	UUID  string
	// Window is the number of readings averaged; values below 1 disable
	// smoothing.
	Window int
}

// Sensor reports a GPU's core temperature.
type Sensor struct {
	lib     library
	device  Device
	name    string
	logger  logger.Logger
	mu      sync.Mutex
	window  int
	history []zone.Temperature
	closed  bool
}

// NewSensor initializes NVML and opens the configured device.
func NewSensor(cfg Config, log logger.Logger) (*Sensor, error) {
	return newSensor(&nvmlWrapper{}, cfg, log)
}

func newSensor(lib library, cfg Config, log logger.Logger) (*Sensor, error) {
	errFactory := errors.New()

	if err := lib.Initialize(); err != nil {
		return nil, err
	}

	var (
		device Device
		err    error
	)
	if cfg.UUID != "" {
		device, err = lib.GetDeviceByUUID(cfg.UUID)
	} else {
		var count int
		if count, err = lib.GetDeviceCount(); err == nil && cfg.Index >= count {
			err = errFactory.WithData(ErrDeviceNotFound, struct {
				Index int
				Count int
			}{
				Index: cfg.Index,
				Count: count,
			})
		}
		if err == nil {
			device, err = lib.GetDevice(cfg.Index)
		}
	}
	if err != nil {
		if shutdownErr := lib.Shutdown(); shutdownErr != nil {
			log.Debug().Err(shutdownErr).Msg("NVML shutdown after failed open")
		}
		return nil, err
	}

	s := &Sensor{
		lib:    lib,
		device: device,
		logger: log,
		window: max(cfg.Window, 1),
	}

	if name, ret := device.GetName(); IsNVMLSuccess(ret) {
		s.name = name
		log.Info().Str("name", name).Msg("Detected GPU")
	} else {
		log.Warn().Str("error", nvml.ErrorString(ret)).Msg("Failed to get GPU name")
	}

	return s, nil
}

// Name returns the device name reported by NVML.
func (s *Sensor) Name() string {
	return s.name
}

func (s *Sensor) ReadTemperature(ctx context.Context) (zone.Temperature, error) {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errFactory.New(ErrNotInitialized)
	}
	if err := ctx.Err(); err != nil {
		return 0, errFactory.Wrap(ErrTemperatureReadFailed, err)
	}

	temp, ret := s.device.GetTemperature(nvml.TEMPERATURE_GPU)
	if !IsNVMLSuccess(ret) {
		return 0, errFactory.Wrap(ErrTemperatureReadFailed, newNVMLError(ret))
	}

	return s.smooth(zone.FromCelsius(float64(temp))), nil
}

// smooth keeps the last window readings and returns their mean.
func (s *Sensor) smooth(t zone.Temperature) zone.Temperature {
	if s.window == 1 {
		return t
	}

	s.history = append(s.history, t)
	if len(s.history) > s.window {
		s.history = s.history[len(s.history)-s.window:]
	}

	var sum zone.Temperature
	for _, h := range s.history {
		sum += h
	}

	return sum / zone.Temperature(len(s.history))
}

// Close releases NVML. Further reads fail with ErrNotInitialized.
func (s *Sensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.lib.Shutdown()
}
