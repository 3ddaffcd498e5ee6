package config_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/thermalctl/internal/config"
	"codeberg.org/mutker/thermalctl/internal/cpufreq"
	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/freq"
	"codeberg.org/mutker/thermalctl/internal/sensor"
	"codeberg.org/mutker/thermalctl/internal/zone"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "thermalctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("THERMALCTL_CONFIG", path)

	return path
}

func TestLoad(t *testing.T) {
	writeConfig(t, `
enabled = false
sampling_ms = 1500
log_level = "debug"
pid_file = "/tmp/thermalctl.pid"

[sensor]
type = "sysfs"
path = "cpu-thermal"
scale = 10

[cpufreq]
little_cpus = "0-3"

[metrics]
enabled = true
db_path = "/tmp/metrics.db"

[[zones]]
freq_little = 1000000
freq_big = 1400000
trip = 40
reset = 35

[[zones]]
freq_little = 800000
freq_big = 1000000
trip = 50.5
reset = 45
`)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1500*time.Millisecond, cfg.SamplingPeriod())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/thermalctl.pid", cfg.PIDFile)
	assert.Equal(t, "cpu-thermal", cfg.Sensor.Path)
	assert.Equal(t, int64(10), cfg.Sensor.Scale)
	assert.True(t, cfg.MetricsConfig().Enabled)
	assert.Equal(t, "/tmp/metrics.db", cfg.MetricsConfig().DBPath)

	cpus, err := cfg.LittleCPUs()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, cpus)

	require.Len(t, cfg.Zones, 2)
	table, err := cfg.ZoneTable()
	require.NoError(t, err)
	z, ok := table.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, zone.Zone{
		FreqLittle: freq.Frequency(800000),
		FreqBig:    freq.Frequency(1000000),
		Trip:       zone.FromCelsius(50.5),
		Reset:      zone.FromCelsius(45),
	}, z)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("THERMALCTL_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, config.DefaultSamplingMS, cfg.SamplingMS)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, config.SensorSysfs, cfg.Sensor.Type)
	assert.Equal(t, config.DefaultSensorPath, cfg.Sensor.Path)
	assert.Empty(t, cfg.Zones)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.MQTT.Enabled)
	assert.False(t, cfg.Indicator.Enabled)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	writeConfig(t, "This is not a valid TOML file\n")

	_, err := config.Load()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestValidation(t *testing.T) {
	var tooMany strings.Builder
	for i := 0; i <= zone.MaxZones; i++ {
		tooMany.WriteString("[[zones]]\nfreq_little = 1000\nfreq_big = 1000\ntrip = 40\nreset = 35\n")
	}

	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{name: "log level", content: `log_level = "invalid"`, code: errors.ErrInvalidLogLevel},
		{name: "zero sampling period", content: `sampling_ms = 0`, code: errors.ErrInvalidInterval},
		{name: "negative sampling period", content: `sampling_ms = -5`, code: errors.ErrInvalidInterval},
		{name: "too many zones", content: tooMany.String(), code: zone.ErrCapacityExceeded},
		{name: "sensor type", content: "[sensor]\ntype = \"acpi\"", code: sensor.ErrUnknownType},
		{name: "little cpus", content: "[cpufreq]\nlittle_cpus = \"3-1\"", code: cpufreq.ErrInvalidCPUList},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeConfig(t, tt.content)

			_, err := config.Load()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestMisorderedZonesLoad(t *testing.T) {
	writeConfig(t, `
[[zones]]
freq_little = 1000
freq_big = 1000
trip = 50
reset = 45

[[zones]]
freq_little = 800
freq_big = 800
trip = 40
reset = 35
`)

	cfg, err := config.Load()
	require.NoError(t, err)

	table, err := cfg.ZoneTable()
	require.NoError(t, err)
	assert.True(t, errors.HasCode(table.Validate(), zone.ErrMisordered))
}

func TestEnvironmentOverride(t *testing.T) {
	writeConfig(t, "sampling_ms = 1500\n")
	t.Setenv("THERMALCTL_SAMPLING_MS", "500")
	t.Setenv("THERMALCTL_METRICS_DB_PATH", "/run/metrics.db")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.SamplingMS)
	assert.Equal(t, "/run/metrics.db", cfg.Metrics.DBPath)
}

func TestDotEnv(t *testing.T) {
	t.Setenv("THERMALCTL_CONFIG", "")

	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("THERMALCTL_TELEMETRY_TOKEN=secret\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("THERMALCTL_TELEMETRY_TOKEN") })

	cfg, err := config.Load(config.WithDotEnv(env, filepath.Join(dir, "missing.env")))
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Telemetry.Token)
}

func TestFlagsOverride(t *testing.T) {
	writeConfig(t, "log_level = \"error\"\nsampling_ms = 1500\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("log-level", "", "")
	fs.Int("sampling-ms", 0, "")
	require.NoError(t, fs.Parse([]string{"--log-level", "debug"}))

	cfg, err := config.Load(config.WithFlags(fs))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1500, cfg.SamplingMS, "unset flags keep file values")
}

func TestWithConfigFile(t *testing.T) {
	t.Setenv("THERMALCTL_CONFIG", "")
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("sampling_ms = 250\n"), 0o600))

	l, err := config.NewLoader(config.WithConfigFile(path))
	require.NoError(t, err)

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.SamplingMS)
	assert.Equal(t, path, l.ConfigFile())
	assert.Same(t, cfg, l.Current())
}

func TestWatchRequiresFile(t *testing.T) {
	t.Setenv("THERMALCTL_CONFIG", "")

	l, err := config.NewLoader()
	require.NoError(t, err)
	_, err = l.Load()
	require.NoError(t, err)

	err = l.Watch(context.Background(), func(*config.Config) {}, nil)
	assert.True(t, errors.HasCode(err, errors.ErrMissingConfig))
}

func TestWatch(t *testing.T) {
	path := writeConfig(t, "sampling_ms = 1500\n")

	l, err := config.NewLoader()
	require.NoError(t, err)
	_, err = l.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var period atomic.Int64
	require.NoError(t, l.Watch(ctx, func(cfg *config.Config) {
		period.Store(int64(cfg.SamplingMS))
	}, nil))

	require.NoError(t, os.WriteFile(path, []byte("sampling_ms = 700\n"), 0o600))

	assert.Eventually(t, func() bool {
		return period.Load() == 700
	}, 5*time.Second, 20*time.Millisecond)
}
