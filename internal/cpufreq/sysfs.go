package cpufreq

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/freq"
)

func readAttr(dir, name string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", errors.New().Wrap(ErrReadAttribute, err)
	}

	return strings.TrimSpace(string(b)), nil
}

func readFreq(dir, name string) (freq.Frequency, error) {
	s, err := readAttr(dir, name)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.New().WithData(ErrReadAttribute, struct {
			Path  string
			Value string
		}{
			Path:  filepath.Join(dir, name),
			Value: s,
		})
	}

	return freq.Frequency(v), nil
}

func readFreqList(dir, name string) ([]freq.Frequency, error) {
	s, err := readAttr(dir, name)
	if err != nil {
		return nil, err
	}

	var out []freq.Frequency
	for _, field := range strings.Fields(s) {
		v, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return nil, errors.New().Wrap(ErrReadAttribute, err)
		}
		out = append(out, freq.Frequency(v))
	}

	return out, nil
}

func writeFreq(dir, name string, f freq.Frequency) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strconv.FormatUint(uint64(f), 10)), 0o644); err != nil {
		return errors.New().WithData(ErrWriteAttribute, struct {
			Path  string
			Value freq.Frequency
			Error string
		}{
			Path:  path,
			Value: f,
			Error: err.Error(),
		})
	}

	return nil
}

// ParseCPUList parses the kernel's CPU list formats: "0-3,6" as used in
// cpulist files and configuration, and "0 1 2 3" as in related_cpus.
func ParseCPUList(s string) ([]int, error) {
	errFactory := errors.New()

	var cpus []int
	for _, part := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	}) {
		lo, hi, isRange := strings.Cut(part, "-")

		first, err := strconv.Atoi(lo)
		if err != nil || first < 0 {
			return nil, errFactory.WithData(ErrInvalidCPUList, s)
		}
		last := first
		if isRange {
			if last, err = strconv.Atoi(hi); err != nil || last < first {
				return nil, errFactory.WithData(ErrInvalidCPUList, s)
			}
		}

		for cpu := first; cpu <= last; cpu++ {
			cpus = append(cpus, cpu)
		}
	}

	return cpus, nil
}
