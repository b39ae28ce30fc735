package main

import (
	"fmt"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/deppfellow/portfolio-backend/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "portfolio",
		Short:        "Portfolio backend: contact intake, admin listing and chat relay",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newConfigCmd(),
		newPreviewEmailCmd(),
	)
	return rootCmd
}

// bootstrap loads the configuration and builds the root logger. The
// returned LoggerService must be shut down by the caller.
func bootstrap() (*config.Config, *zerolog.Logger, *logger.LoggerService, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	loggerService, err := logger.NewLoggerService(cfg.Observability)
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)
	if err != nil {
		log.Warn().Err(err).Msg("continuing without New Relic")
	}

	return cfg, &log, loggerService, nil
}
