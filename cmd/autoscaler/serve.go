package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/OldStager01/traffic-autoscaler/api"
	"github.com/OldStager01/traffic-autoscaler/internal/logger"
	"github.com/OldStager01/traffic-autoscaler/internal/metrics"
	"github.com/OldStager01/traffic-autoscaler/internal/orchestrator"
)

func newServeCmd() *cobra.Command {
	var autopilot bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when enabled, the autopilot loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("autopilot") {
				cfg.Autopilot.Enabled = autopilot
			}

			logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)
			if cfg.App.Mode == "development" {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			buildCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			orch, err := orchestrator.Build(buildCtx, cfg, nil)
			cancel()
			if err != nil {
				return err
			}

			if err := orch.Start(); err != nil {
				orch.Stop()
				return fmt.Errorf("failed to start orchestrator: %w", err)
			}

			var metricsServer *http.Server
			if cfg.Prometheus.Enabled && cfg.Prometheus.Port > 0 && cfg.Prometheus.Port != cfg.API.Port {
				metricsServer = metrics.StartServer(cfg.Prometheus.Port)
			}

			server := api.NewServer(cfg, orch, metrics.Get())

			shutdownChan := make(chan os.Signal, 1)
			signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

			errChan := make(chan error, 1)
			go func() {
				logger.Infof("API server listening on port %d", cfg.API.Port)
				if err := server.Start(); err != nil && err != http.ErrServerClosed {
					errChan <- err
				}
			}()

			var runErr error
			select {
			case err := <-errChan:
				runErr = fmt.Errorf("server error: %w", err)
			case sig := <-shutdownChan:
				logger.Infof("Received signal %v, shutting down", sig)
			}

			timeout := cfg.App.ShutdownTimeout
			if timeout <= 0 {
				timeout = 10 * time.Second
			}
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
			defer shutdownCancel()

			if err := server.Shutdown(shutdownCtx); err != nil && runErr == nil {
				runErr = fmt.Errorf("shutdown error: %w", err)
			}
			if metricsServer != nil {
				metricsServer.Shutdown(shutdownCtx)
			}
			orch.Stop()

			if runErr == nil {
				logger.Info("Server stopped gracefully")
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&autopilot, "autopilot", false, "override autopilot.enabled")
	return cmd
}
