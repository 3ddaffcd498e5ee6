// Package cpufreq discovers the processing clusters managed by the Linux
// cpufreq subsystem and negotiates their frequency limits with the
// throttle enforcer.
package cpufreq

import (
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/freq"
	"codeberg.org/mutker/thermalctl/internal/logger"
)

// DefaultRoot is where the kernel exposes cpufreq policies.
const DefaultRoot = "/sys/devices/system/cpu/cpufreq"

// syntheticStep spaces the steps built for drivers without a frequency
// table, such as intel_pstate.
const syntheticStep = freq.Frequency(100000)

// Limits is a pair of scaling limits in kHz.
type Limits struct {
	Min freq.Frequency
	Max freq.Frequency
}

// Cluster is one cpufreq policy: a group of CPUs sharing a clock.
type Cluster struct {
	Name   string
	Path   string
	CPUs   []int
	Family freq.Family
	Table  freq.Table
	// HardwareMax is cpuinfo_max_freq.
	HardwareMax freq.Frequency
	// User holds the scaling limits found at discovery; they are the
	// unthrottled policy and are written back by Restore.
	User Limits
}

// Discover reads every policy under root. CPUs listed in littleCPUs mark
// their cluster as Little and all others as Big. Without that list the
// clusters with the highest hardware maximum are Big, unless every cluster
// shares it, in which case all are Little.
func Discover(root string, littleCPUs []int, log logger.Logger) ([]*Cluster, error) {
	errFactory := errors.New()

	if root == "" {
		root = DefaultRoot
	}

	dirs, err := filepath.Glob(filepath.Join(root, "policy*"))
	if err != nil {
		return nil, errFactory.Wrap(ErrReadAttribute, err)
	}
	sort.Slice(dirs, func(i, j int) bool {
		return policyNumber(dirs[i]) < policyNumber(dirs[j])
	})

	var clusters []*Cluster
	for _, dir := range dirs {
		c, err := readCluster(dir)
		if err != nil {
			log.Warn().Err(err).Str("policy", filepath.Base(dir)).Msg("Skipping cpufreq policy")
			continue
		}
		clusters = append(clusters, c)
	}

	if len(clusters) == 0 {
		return nil, errFactory.WithData(ErrNoClusters, root)
	}

	assignFamilies(clusters, littleCPUs)

	for _, c := range clusters {
		log.Info().
			Str("policy", c.Name).
			Ints("cpus", c.CPUs).
			Stringer("family", c.Family).
			Int("steps", c.Table.Len()).
			Uint32("max", uint32(c.User.Max)).
			Msg("Discovered CPU cluster")
	}

	return clusters, nil
}

func policyNumber(dir string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(dir), "policy"))
	if err != nil {
		return -1
	}

	return n
}

func readCluster(dir string) (*Cluster, error) {
	c := &Cluster{
		Name: filepath.Base(dir),
		Path: dir,
	}

	cpus, err := readAttr(dir, "related_cpus")
	if err != nil {
		return nil, err
	}
	if c.CPUs, err = ParseCPUList(cpus); err != nil {
		return nil, err
	}
	if len(c.CPUs) == 0 {
		return nil, errors.New().WithData(ErrInvalidCPUList, c.Name)
	}

	hwMin, err := readFreq(dir, "cpuinfo_min_freq")
	if err != nil {
		return nil, err
	}
	if c.HardwareMax, err = readFreq(dir, "cpuinfo_max_freq"); err != nil {
		return nil, err
	}
	if c.User.Min, err = readFreq(dir, "scaling_min_freq"); err != nil {
		return nil, err
	}
	if c.User.Max, err = readFreq(dir, "scaling_max_freq"); err != nil {
		return nil, err
	}

	steps, err := readFreqList(dir, "scaling_available_frequencies")
	if err != nil || len(steps) == 0 {
		steps = syntheticSteps(hwMin, c.HardwareMax)
	}
	if c.Table, err = freq.NewTable(steps); err != nil {
		return nil, err
	}

	return c, nil
}

// syntheticSteps spans lo..hi in fixed increments, always including both ends.
func syntheticSteps(lo, hi freq.Frequency) []freq.Frequency {
	var steps []freq.Frequency
	for f := lo; f < hi; f += syntheticStep {
		steps = append(steps, f)
	}

	return append(steps, hi)
}

func assignFamilies(clusters []*Cluster, littleCPUs []int) {
	if len(littleCPUs) > 0 {
		for _, c := range clusters {
			c.Family = freq.Big
			for _, cpu := range c.CPUs {
				if slices.Contains(littleCPUs, cpu) {
					c.Family = freq.Little
					break
				}
			}
		}
		return
	}

	var highest freq.Frequency
	for _, c := range clusters {
		highest = max(highest, c.HardwareMax)
	}

	uniform := true
	for _, c := range clusters {
		if c.HardwareMax != highest {
			uniform = false
		}
	}

	for _, c := range clusters {
		c.Family = freq.Little
		if !uniform && c.HardwareMax == highest {
			c.Family = freq.Big
		}
	}
}
