package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"intakeflow/internal/app"
	"intakeflow/internal/config"
	"intakeflow/internal/pkg/logger"
)

var rootCMD = &cobra.Command{
	Use:          "intakectl",
	Short:        "intakeflow administration",
	Long:         `Maintenance commands for the intakeflow database and enrichment pipeline.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
}

// initialize loads config from the environment and builds the app.
func initialize(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	lg, err := logger.New(cfg.AppEnv)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}
	return a, nil
}
