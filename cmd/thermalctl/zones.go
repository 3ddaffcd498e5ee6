package main

import (
	"fmt"
	"io"

	"codeberg.org/mutker/thermalctl/internal/config"
	"codeberg.org/mutker/thermalctl/internal/control"
	"codeberg.org/mutker/thermalctl/internal/cpufreq"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/zone"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type zoneEntry struct {
	Key               string `yaml:"key"`
	config.ZoneConfig `yaml:",inline"`
	Tuple             string            `yaml:"tuple"`
	Snapped           map[string]uint32 `yaml:"snapped,omitempty"`
}

type zonesDocument struct {
	Zones    []zoneEntry `yaml:"zones"`
	Warnings []string    `yaml:"warnings,omitempty"`
}

func newZonesCommand(flags *globalFlags) *cobra.Command {
	var snap bool

	cmd := &cobra.Command{
		Use:   "zones",
		Short: "Print the effective zone table as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			var clusters []*cpufreq.Cluster
			if snap {
				little, err := cfg.LittleCPUs()
				if err != nil {
					return err
				}
				if clusters, err = cpufreq.Discover(cfg.CPUFreq.Root, little, logger.New().With("cpufreq")); err != nil {
					return err
				}
			}

			table, err := cfg.ZoneTable()
			if err != nil {
				return err
			}

			return writeZones(cmd.OutOrStdout(), table, clusters)
		},
	}

	cmd.Flags().BoolVar(&snap, "snap", false, "Show the step each target snaps to on the discovered clusters")

	return cmd
}

func writeZones(w io.Writer, table *zone.Table, clusters []*cpufreq.Cluster) error {
	doc := zonesDocument{Zones: []zoneEntry{}}

	for i, z := range table.Effective() {
		entry := zoneEntry{
			Key: control.ZoneKey(i),
			ZoneConfig: config.ZoneConfig{
				FreqLittle: uint32(z.FreqLittle),
				FreqBig:    uint32(z.FreqBig),
				Trip:       z.Trip.Celsius(),
				Reset:      z.Reset.Celsius(),
			},
			Tuple: control.FormatZone(z),
		}

		for _, c := range clusters {
			if entry.Snapped == nil {
				entry.Snapped = make(map[string]uint32)
			}
			snapped, _ := c.Table.Snap(z.Target(c.Family))
			entry.Snapped[c.Name] = uint32(snapped)
		}

		doc.Zones = append(doc.Zones, entry)
	}

	doc.Warnings = misorderings(table.Effective())

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}

	return enc.Close()
}

func misorderings(zones []zone.Zone) []string {
	var out []string
	for _, m := range zone.Misorderings(zones) {
		out = append(out, fmt.Sprintf("%s: %s", control.ZoneKey(m.Index), m.Reason))
	}

	return out
}
