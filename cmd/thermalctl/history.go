package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"codeberg.org/mutker/thermalctl/internal/metrics"
	"github.com/spf13/cobra"
)

func newHistoryCommand(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent zone transitions from the metrics database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			mcfg := cfg.MetricsConfig()
			if !mcfg.Enabled {
				return errors.New().WithMessage(errors.ErrInvalidConfig, "metrics are disabled")
			}

			collector, err := metrics.NewService(mcfg, logger.New().With("metrics"))
			if err != nil {
				return err
			}
			defer collector.Close()

			transitions, err := collector.Transitions(cmd.Context(), limit)
			if err != nil {
				return err
			}

			return writeHistory(cmd.OutOrStdout(), transitions)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of transitions to show")

	return cmd
}

func writeHistory(w io.Writer, transitions []metrics.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTEMPERATURE\tFROM\tTO\tACTIVE")

	for _, s := range transitions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n",
			s.Timestamp.Local().Format(time.RFC3339),
			s.Temperature,
			s.Previous,
			s.Zone,
			s.Active,
		)
	}

	return tw.Flush()
}
