package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/NSF-Swift/satellite-overhead/internal/config"
	"github.com/NSF-Swift/satellite-overhead/internal/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "sopp",
		Short: "Satellite interference finder for radio astronomy",
		Long: `sopp predicts when satellites pass through a radio telescope's main beam
or above its horizon during an observation, so that interference can be
planned around.

Settings come from a YAML file (--config or $SOPP_CONFIG) with SOPP_*
environment overrides.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to configuration file (default $SOPP_CONFIG)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(a), newServeCmd(a), newTLECmd(a), newRunsCmd(a))
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg
	a.logger = logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.JSON)
	return nil
}
