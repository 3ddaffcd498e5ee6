// Package config loads thermalctl settings from TOML, the environment and
// command line flags, and watches the file for live changes.
package config

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/thermalctl/internal/cpufreq"
	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/events"
	"codeberg.org/mutker/thermalctl/internal/freq"
	"codeberg.org/mutker/thermalctl/internal/gpio"
	"codeberg.org/mutker/thermalctl/internal/gpu"
	"codeberg.org/mutker/thermalctl/internal/metrics"
	"codeberg.org/mutker/thermalctl/internal/pid"
	"codeberg.org/mutker/thermalctl/internal/sensor"
	"codeberg.org/mutker/thermalctl/internal/telemetry"
	"codeberg.org/mutker/thermalctl/internal/zone"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix  = "THERMALCTL"
	DefaultConfigFile = "/etc/thermalctl.toml"
	DefaultLogLevel   = "info"
	DefaultSamplingMS = 3000
	DefaultSensorType = SensorSysfs
	DefaultSensorPath = "thermal_zone0"
	DefaultTimeoutMS  = 1000
)

// Sensor backends.
const (
	SensorSysfs = "sysfs"
	SensorNVML  = "nvml"
)

// ZoneConfig is one thermal zone. Frequencies are in kHz and temperatures
// in °C.
type ZoneConfig struct {
	FreqLittle uint32  `mapstructure:"freq_little" yaml:"freq_little"`
	FreqBig    uint32  `mapstructure:"freq_big" yaml:"freq_big"`
	Trip       float64 `mapstructure:"trip" yaml:"trip"`
	Reset      float64 `mapstructure:"reset" yaml:"reset"`
}

// Zone converts the entry to its table form.
func (z ZoneConfig) Zone() zone.Zone {
	return zone.Zone{
		FreqLittle: freq.Frequency(z.FreqLittle),
		FreqBig:    freq.Frequency(z.FreqBig),
		Trip:       zone.FromCelsius(z.Trip),
		Reset:      zone.FromCelsius(z.Reset),
	}
}

type SensorConfig struct {
	// Type is "sysfs" or "nvml".
	Type string `mapstructure:"type"`
	// Path names a thermal zone by directory, type or full path.
	Path string `mapstructure:"path"`
	// Scale multiplies raw readings before they are read as millidegrees.
	Scale     int64  `mapstructure:"scale"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
	GPUIndex  int    `mapstructure:"gpu_index"`
	GPUUUID   string `mapstructure:"gpu_uuid"`
	Window    int    `mapstructure:"window"`
}

type CPUFreqConfig struct {
	Root string `mapstructure:"root"`
	// LittleCPUs is a CPU list such as "0-3".
	LittleCPUs string `mapstructure:"little_cpus"`
}

type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DBPath       string `mapstructure:"db_path"`
	BatchSize    int    `mapstructure:"batch_size"`
	BatchTimeout int    `mapstructure:"batch_timeout"`
	BackupDir    string `mapstructure:"backup_dir"`
}

type TelemetryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	Token         string `mapstructure:"token"`
	Org           string `mapstructure:"org"`
	Bucket        string `mapstructure:"bucket"`
	Host          string `mapstructure:"host"`
	FlushInterval int    `mapstructure:"flush_interval"`
	BatchSize     uint   `mapstructure:"batch_size"`
}

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type IndicatorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Chip    string `mapstructure:"chip"`
	Line    int    `mapstructure:"line"`
}

type Config struct {
	Enabled    bool            `mapstructure:"enabled"`
	SamplingMS int             `mapstructure:"sampling_ms"`
	LogLevel   string          `mapstructure:"log_level"`
	Zones      []ZoneConfig    `mapstructure:"zones"`
	Sensor     SensorConfig    `mapstructure:"sensor"`
	CPUFreq    CPUFreqConfig   `mapstructure:"cpufreq"`
	Metrics    MetricsConfig   `mapstructure:"metrics"`
	Telemetry  TelemetryConfig `mapstructure:"telemetry"`
	MQTT       MQTTConfig      `mapstructure:"mqtt"`
	Indicator  IndicatorConfig `mapstructure:"indicator"`
	PIDFile    string          `mapstructure:"pid_file"`
}

// SensorTimeout bounds a single sensor read.
func (c *Config) SensorTimeout() time.Duration {
	return time.Duration(c.Sensor.TimeoutMS) * time.Millisecond
}

// SamplingPeriod returns sampling_ms as a duration.
func (c *Config) SamplingPeriod() time.Duration {
	return time.Duration(c.SamplingMS) * time.Millisecond
}

// ZoneTable builds the zone table. More than zone.MaxZones entries fail
// with zone.ErrCapacityExceeded.
func (c *Config) ZoneTable() (*zone.Table, error) {
	zones := make([]zone.Zone, 0, len(c.Zones))
	for _, z := range c.Zones {
		zones = append(zones, z.Zone())
	}

	return zone.NewTable(zones...)
}

// LittleCPUs parses cpufreq.little_cpus.
func (c *Config) LittleCPUs() ([]int, error) {
	return cpufreq.ParseCPUList(c.CPUFreq.LittleCPUs)
}

func (c *Config) GPU() gpu.Config {
	return gpu.Config{
		Index:  c.Sensor.GPUIndex,
		UUID:   c.Sensor.GPUUUID,
		Window: c.Sensor.Window,
	}
}

func (c *Config) MetricsConfig() metrics.Config {
	return metrics.Config{
		Enabled:      c.Metrics.Enabled,
		DBPath:       c.Metrics.DBPath,
		BatchSize:    c.Metrics.BatchSize,
		BatchTimeout: c.Metrics.BatchTimeout,
		BackupDir:    c.Metrics.BackupDir,
	}
}

func (c *Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		Enabled:       c.Telemetry.Enabled,
		URL:           c.Telemetry.URL,
		Token:         c.Telemetry.Token,
		Org:           c.Telemetry.Org,
		Bucket:        c.Telemetry.Bucket,
		Host:          c.Telemetry.Host,
		FlushInterval: time.Duration(c.Telemetry.FlushInterval) * time.Second,
		BatchSize:     c.Telemetry.BatchSize,
	}
}

func (c *Config) EventsConfig() events.Config {
	return events.Config{
		Enabled:  c.MQTT.Enabled,
		Broker:   c.MQTT.Broker,
		ClientID: c.MQTT.ClientID,
		Topic:    c.MQTT.Topic,
		Username: c.MQTT.Username,
		Password: c.MQTT.Password,
	}
}

// Validate checks values that would prevent the daemon from starting.
// Zone ordering is not checked here.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	if c.SamplingMS <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.SamplingMS)
	}
	if len(c.Zones) > zone.MaxZones {
		return errFactory.WithData(zone.ErrCapacityExceeded, struct {
			Zones    int
			MaxZones int
		}{
			Zones:    len(c.Zones),
			MaxZones: zone.MaxZones,
		})
	}
	switch c.Sensor.Type {
	case SensorSysfs, SensorNVML:
	default:
		return errFactory.WithData(sensor.ErrUnknownType, c.Sensor.Type)
	}
	if c.Sensor.Scale <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "sensor scale must be positive")
	}
	if _, err := c.LittleCPUs(); err != nil {
		return err
	}
	if c.Indicator.Enabled && c.Indicator.Line < 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "indicator line must not be negative")
	}

	for _, validate := range []func() error{
		c.MetricsConfig().Validate,
		c.TelemetryConfig().Validate,
		c.EventsConfig().Validate,
	} {
		if err := validate(); err != nil {
			return err
		}
	}

	return nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	m := metrics.DefaultConfig()
	t := telemetry.DefaultConfig()
	e := events.DefaultConfig()

	v.SetDefault("enabled", true)
	v.SetDefault("sampling_ms", DefaultSamplingMS)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("sensor.type", DefaultSensorType)
	v.SetDefault("sensor.path", DefaultSensorPath)
	v.SetDefault("sensor.scale", 1)
	v.SetDefault("sensor.timeout_ms", DefaultTimeoutMS)
	v.SetDefault("sensor.window", 1)
	v.SetDefault("sensor.gpu_index", 0)
	v.SetDefault("sensor.gpu_uuid", "")
	v.SetDefault("cpufreq.root", cpufreq.DefaultRoot)
	v.SetDefault("cpufreq.little_cpus", "")
	v.SetDefault("metrics.enabled", m.Enabled)
	v.SetDefault("metrics.db_path", m.DBPath)
	v.SetDefault("metrics.batch_size", m.BatchSize)
	v.SetDefault("metrics.batch_timeout", m.BatchTimeout)
	v.SetDefault("metrics.backup_dir", "")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.token", "")
	v.SetDefault("telemetry.org", "")
	v.SetDefault("telemetry.host", "")
	v.SetDefault("telemetry.url", t.URL)
	v.SetDefault("telemetry.bucket", t.Bucket)
	v.SetDefault("telemetry.flush_interval", int(t.FlushInterval/time.Second))
	v.SetDefault("telemetry.batch_size", t.BatchSize)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", e.Broker)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.client_id", e.ClientID)
	v.SetDefault("mqtt.topic", e.Topic)
	v.SetDefault("indicator.enabled", false)
	v.SetDefault("indicator.chip", gpio.DefaultChip)
	v.SetDefault("indicator.line", 0)
	v.SetDefault("pid_file", pid.DefaultPath())
}

// Loader reads configuration and keeps the viper instance for watching.
type Loader struct {
	v    *viper.Viper
	opts options

	mu      sync.Mutex
	current *Config
}

// NewLoader applies opts and prepares the sources. Nothing is read until
// Load is called.
func NewLoader(opts ...Option) (*Loader, error) {
	l := &Loader{
		v:    viper.New(),
		opts: options{envPrefix: DefaultEnvPrefix},
	}
	for _, opt := range opts {
		if err := opt(&l.opts); err != nil {
			return nil, errors.New().Wrap(errors.ErrInvalidConfig, err)
		}
	}

	return l, nil
}

// Load is shorthand for NewLoader followed by Loader.Load.
func Load(opts ...Option) (*Config, error) {
	l, err := NewLoader(opts...)
	if err != nil {
		return nil, err
	}

	return l.Load()
}

// Load reads .env files, the config file, the environment and flags, in
// increasing order of precedence, and validates the result.
func (l *Loader) Load() (*Config, error) {
	errFactory := errors.New()
	v := l.v

	for _, path := range l.opts.dotEnv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	setDefaults(v)
	v.SetEnvPrefix(l.opts.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := l.configPath(); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	if flags := l.opts.flags; flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if f.Name == "config" || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
		})
		if bindErr != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, bindErr)
		}
	}

	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()

	return cfg, nil
}

// ConfigFile returns the file in use, or "" when running on defaults.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// configPath picks the explicit path, then $PREFIX_CONFIG, then the system
// file if it exists.
func (l *Loader) configPath() string {
	if l.opts.configPath != "" {
		return l.opts.configPath
	}
	if path, ok := os.LookupEnv(l.opts.envPrefix + "_CONFIG"); ok {
		return path
	}
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile
	}

	return ""
}

func (l *Loader) decode() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, errors.New().Wrap(errors.ErrInvalidConfig, err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Watch calls fn with the new configuration each time the file changes and
// still validates. Invalid edits are reported through onError and the
// previous configuration stays in effect. Callbacks stop once ctx is done.
func (l *Loader) Watch(ctx context.Context, fn func(*Config), onError func(error)) error {
	if l.v.ConfigFileUsed() == "" {
		return errors.New().WithMessage(errors.ErrMissingConfig, "no config file to watch")
	}

	l.v.OnConfigChange(func(fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}

		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}

		l.mu.Lock()
		l.current = cfg
		l.mu.Unlock()

		fn(cfg)
	})
	l.v.WatchConfig()

	return nil
}

// Current returns the last successfully loaded configuration.
func (l *Loader) Current() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.current
}
