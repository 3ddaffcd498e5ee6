package gpu

import (
	"context"
	"testing"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/zone"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	name  string
	uuid  string
	temps []uint32
	ret   nvml.Return
}

func (d *fakeDevice) GetName() (string, nvml.Return) { return d.name, nvml.SUCCESS }
func (d *fakeDevice) GetUUID() (string, nvml.Return) { return d.uuid, nvml.SUCCESS }

func (d *fakeDevice) GetTemperature(sensor nvml.TemperatureSensors) (uint32, nvml.Return) {
	if sensor != nvml.TEMPERATURE_GPU {
		return 0, nvml.ERROR_NOT_SUPPORTED
	}
	if d.ret != nvml.SUCCESS {
		return 0, d.ret
	}

	t := d.temps[0]
	if len(d.temps) > 1 {
		d.temps = d.temps[1:]
	}

	return t, nvml.SUCCESS
}

type fakeLibrary struct {
	devices   []*fakeDevice
	initErr   error
	inits     int
	shutdowns int
}

func (l *fakeLibrary) Initialize() error {
	l.inits++
	return l.initErr
}

func (l *fakeLibrary) Shutdown() error {
	l.shutdowns++
	return nil
}

func (l *fakeLibrary) GetDeviceCount() (int, error) {
	return len(l.devices), nil
}

func (l *fakeLibrary) GetDevice(index int) (Device, error) {
	if index < 0 || index >= len(l.devices) {
		return nil, errors.New().Wrap(ErrDeviceNotFound, newNVMLError(nvml.ERROR_INVALID_ARGUMENT))
	}
	return l.devices[index], nil
}

func (l *fakeLibrary) GetDeviceByUUID(uuid string) (Device, error) {
	for _, d := range l.devices {
		if d.uuid == uuid {
			return d, nil
		}
	}
	return nil, errors.New().Wrap(ErrDeviceNotFound, newNVMLError(nvml.ERROR_NOT_FOUND))
}

func TestSensorReadsTemperature(t *testing.T) {
	lib := &fakeLibrary{devices: []*fakeDevice{
		{name: "RTX 4090", uuid: "GPU-a", temps: []uint32{61, 64}},
	}}

	s, err := newSensor(lib, Config{}, logger.New())
	require.NoError(t, err)
	assert.Equal(t, "RTX 4090", s.Name())

	temp, err := s.ReadTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, zone.FromCelsius(61), temp)

	temp, err = s.ReadTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, zone.FromCelsius(64), temp)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, lib.shutdowns)

	_, err = s.ReadTemperature(context.Background())
	assert.True(t, errors.HasCode(err, ErrNotInitialized))
}

func TestSensorSelectsDevice(t *testing.T) {
	lib := &fakeLibrary{devices: []*fakeDevice{
		{name: "first", uuid: "GPU-a", temps: []uint32{40}},
		{name: "second", uuid: "GPU-b", temps: []uint32{70}},
	}}

	s, err := newSensor(lib, Config{Index: 1}, logger.New())
	require.NoError(t, err)
	assert.Equal(t, "second", s.Name())

	s, err = newSensor(lib, Config{UUID: "GPU-a"}, logger.New())
	require.NoError(t, err)
	assert.Equal(t, "first", s.Name())

	_, err = newSensor(lib, Config{Index: 2}, logger.New())
	assert.True(t, errors.HasCode(err, ErrDeviceNotFound))

	_, err = newSensor(lib, Config{UUID: "GPU-z"}, logger.New())
	assert.True(t, errors.HasCode(err, ErrDeviceNotFound))
	assert.Equal(t, 2, lib.shutdowns, "failed opens release NVML")
}

func TestSensorInitFailure(t *testing.T) {
	lib := &fakeLibrary{initErr: errors.New().Wrap(ErrInitFailed, newNVMLError(nvml.ERROR_DRIVER_NOT_LOADED))}

	_, err := newSensor(lib, Config{}, logger.New())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrInitFailed))
}

func TestSensorReadFailure(t *testing.T) {
	dev := &fakeDevice{name: "gpu", temps: []uint32{50}, ret: nvml.ERROR_GPU_IS_LOST}
	s, err := newSensor(&fakeLibrary{devices: []*fakeDevice{dev}}, Config{}, logger.New())
	require.NoError(t, err)

	_, err = s.ReadTemperature(context.Background())
	assert.True(t, errors.HasCode(err, ErrTemperatureReadFailed))

	dev.ret = nvml.SUCCESS
	temp, err := s.ReadTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, zone.FromCelsius(50), temp)
}

func TestSensorSmoothing(t *testing.T) {
	dev := &fakeDevice{name: "gpu", temps: []uint32{60, 70, 80, 90}}
	s, err := newSensor(&fakeLibrary{devices: []*fakeDevice{dev}}, Config{Window: 3}, logger.New())
	require.NoError(t, err)

	want := []float64{60, 65, 70, 80}
	for _, w := range want {
		temp, err := s.ReadTemperature(context.Background())
		require.NoError(t, err)
		assert.Equal(t, zone.FromCelsius(w), temp)
	}
}
