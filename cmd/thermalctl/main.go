// Command thermalctl clamps CPU cluster frequencies as the temperature
// crosses configured thermal zones.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/thermalctl/internal/config"
	"codeberg.org/mutker/thermalctl/internal/logger"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configFile string
	envFile    string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "thermalctl",
		Short:         "Temperature-driven CPU frequency throttling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Environment file loaded before the configuration")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warning, error)")

	root.AddCommand(
		newRunCommand(flags),
		newValidateCommand(flags),
		newZonesCommand(flags),
		newHistoryCommand(flags),
	)

	return root
}

// loadConfig reads the configuration with cmd's flags bound on top and
// initializes logging from the result.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Loader, *config.Config, error) {
	loader, err := config.NewLoader(
		config.WithConfigFile(flags.configFile),
		config.WithDotEnv(flags.envFile),
		config.WithFlags(cmd.Flags()),
	)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, err
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		return nil, nil, err
	}
	logger.Debug().Str("file", loader.ConfigFile()).Msg("Config loaded")

	return loader, cfg, nil
}
