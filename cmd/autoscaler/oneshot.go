package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/OldStager01/traffic-autoscaler/internal/orchestrator"
	"github.com/OldStager01/traffic-autoscaler/pkg/config"
	"github.com/OldStager01/traffic-autoscaler/pkg/models"
	"github.com/OldStager01/traffic-autoscaler/pkg/validation"
)

func newForecastCmd() *cobra.Command {
	var (
		at       string
		horizons []int
		lags     []float64
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Print a one-off traffic forecast as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOrchestrator(false, func(ctx context.Context, orch *orchestrator.Orchestrator) error {
				now, err := validation.ParseOptionalTimestamp(at, orch.Now())
				if err != nil {
					return err
				}
				if err := validation.ValidateHorizons(horizons); err != nil {
					return err
				}

				result, err := orch.Forecast(ctx, now, horizons, lags)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "reference time (ISO 8601), defaults to now")
	cmd.Flags().IntSliceVar(&horizons, "horizons", nil, "horizons in minutes, defaults to forecast.default_horizons")
	cmd.Flags().Float64SliceVar(&lags, "lags", nil, "recent requests per minute, oldest first, most recent last")
	return cmd
}

func newRecommendCmd() *cobra.Command {
	var (
		in          models.ScalingInput
		utilization float64
		skipGrace   bool
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print a one-off scaling recommendation as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("utilization") {
				in.CurrentUtilization = &utilization
			}
			if err := validation.ValidateScalingRequest(in.CurrentServers, in.CurrentLoad, in.PredictedLoad, in.CurrentUtilization); err != nil {
				return err
			}

			return withOrchestrator(skipGrace, func(ctx context.Context, orch *orchestrator.Orchestrator) error {
				rec, err := orch.Recommend(ctx, in)
				if err != nil {
					return err
				}
				return printJSON(rec)
			})
		},
	}

	cmd.Flags().IntVar(&in.CurrentServers, "servers", 1, "current server count")
	cmd.Flags().Float64Var(&in.CurrentLoad, "load", 0, "current requests per minute")
	cmd.Flags().Float64Var(&in.PredictedLoad, "predicted", 0, "predicted requests per minute")
	cmd.Flags().Float64Var(&utilization, "utilization", 0, "observed utilization percent")
	cmd.Flags().BoolVar(&skipGrace, "skip-grace", true, "decide immediately instead of reporting the startup grace period")
	return cmd
}

// withOrchestrator builds the configured components without starting the
// autopilot or the API.
func withOrchestrator(skipGrace bool, fn func(ctx context.Context, orch *orchestrator.Orchestrator) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orch, err := buildOneShot(ctx, cfg, skipGrace)
	if err != nil {
		return err
	}
	defer orch.Stop()

	return fn(ctx, orch)
}

// buildOneShot builds an orchestrator for a single command. The engine is
// created fresh on every run, so skipGrace drops the startup grace that
// would otherwise hold every decision.
func buildOneShot(ctx context.Context, cfg *config.Config, skipGrace bool) (*orchestrator.Orchestrator, error) {
	cfg.Autopilot.Enabled = false
	if skipGrace {
		cfg.Scaling.StartupGrace = 0
	}
	return orchestrator.Build(ctx, cfg, nil)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
