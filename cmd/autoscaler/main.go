package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/pkg/config"
)

// @title Predictive Server Autoscaling API
// @version 1.0.0
// @description Traffic forecasting, scaling recommendations and cost tracking.
// @BasePath /

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "autoscaler",
		Short:         "Predictive server autoscaler",
		Long:          `Forecasts request traffic, recommends server counts and tracks fleet cost.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newForecastCmd())
	rootCmd.AddCommand(newRecommendCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads and validates the config, then sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	return cfg, nil
}
