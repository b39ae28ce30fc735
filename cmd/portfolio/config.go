package main

import (
	"fmt"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/deppfellow/portfolio-backend/internal/lib/utils"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return utils.WriteJSON(cmd.OutOrStdout(), cfg.Redacted())
		},
	}
}
