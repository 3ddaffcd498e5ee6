package main

import (
	"fmt"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"github.com/spf13/cobra"
)

func newValidateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and zone ordering",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader, cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			table, err := cfg.ZoneTable()
			if err != nil {
				return err
			}
			if err := table.Validate(); err != nil {
				return errors.New().Wrap(errors.ErrInvalidZoneTable, err)
			}

			source := loader.ConfigFile()
			if source == "" {
				source = "defaults"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d zones)\n", source, table.Len())

			return nil
		},
	}
}
