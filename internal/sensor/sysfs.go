package sensor

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/zone"
)

// DefaultThermalRoot is where the kernel exposes thermal zones.
const DefaultThermalRoot = "/sys/class/thermal"

// Sysfs reads a thermal zone "temp" attribute in millidegrees Celsius.
type Sysfs struct {
	path  string
	scale int64
}

// NewSysfs returns a sensor reading path. Scale multiplies the raw value
// before it is interpreted as millidegrees; zero means 1.
func NewSysfs(path string, scale int64) (*Sysfs, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.New().Wrap(ErrNotFound, err).WithMessage("thermal sensor not found: " + path)
	}

	if scale == 0 {
		scale = 1
	}

	return &Sysfs{path: path, scale: scale}, nil
}

// Path returns the attribute the sensor reads.
func (s *Sysfs) Path() string {
	return s.path
}

func (s *Sysfs) ReadTemperature(ctx context.Context) (zone.Temperature, error) {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return 0, errFactory.Wrap(ErrReadFailed, err)
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return 0, errFactory.Wrap(ErrReadFailed, err)
	}

	mc, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, errFactory.Wrap(ErrInvalidReading, err)
	}

	return zone.FromMilliCelsius(mc * s.scale), nil
}

// ResolveThermalZone maps name to a "temp" attribute. name may be a path to
// the attribute, a thermal_zoneN directory under root, or the zone's type
// as listed in its "type" file (for example "x86_pkg_temp").
func ResolveThermalZone(root, name string) (string, error) {
	if root == "" {
		root = DefaultThermalRoot
	}

	if fi, err := os.Stat(name); err == nil {
		if fi.IsDir() {
			return filepath.Join(name, "temp"), nil
		}
		return name, nil
	}

	if strings.HasPrefix(name, "thermal_zone") {
		path := filepath.Join(root, name, "temp")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	dirs, err := filepath.Glob(filepath.Join(root, "thermal_zone*"))
	if err != nil {
		return "", errors.New().Wrap(ErrNotFound, err)
	}

	for _, dir := range dirs {
		typ, err := os.ReadFile(filepath.Join(dir, "type"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(typ)) == name {
			return filepath.Join(dir, "temp"), nil
		}
	}

	return "", errors.New().WithData(ErrNotFound, struct {
		Root string
		Name string
	}{
		Root: root,
		Name: name,
	})
}
