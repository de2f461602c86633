package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/config"
	errwrap "github.com/movienighthub/movienight/internal/errors"
	"github.com/movienighthub/movienight/internal/metrics"
	"github.com/movienighthub/movienight/internal/observability"
	"github.com/movienighthub/movienight/internal/server"
	"github.com/movienighthub/movienight/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// storeHealthChecker pings the libsql store.
type storeHealthChecker struct {
	app *app
}

func (s storeHealthChecker) CheckHealth(ctx context.Context) error {
	if s.app == nil || s.app.Store == nil {
		return errwrap.NewDatabaseError("store not opened")
	}
	if _, err := s.app.Store.GetRateLimit(ctx, "health"); err != nil {
		return errwrap.WrapDatabaseError(ctx, err, "store query failed")
	}
	return nil
}

// aiHealthChecker reports the AI provider as degraded while it is
// unconfigured or cooling down; the other endpoints keep serving.
type aiHealthChecker struct {
	app *app
}

func (a aiHealthChecker) CheckHealth(context.Context) error {
	if a.app == nil || a.app.Requester == nil {
		return fmt.Errorf("ai provider not configured: %w", handlers.ErrDegraded)
	}
	if status := a.app.Tracker.Status(); !status.Available {
		return fmt.Errorf("ai provider cooling down for %s: %w", status.Remaining.Round(time.Second), handlers.ErrDegraded)
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the enrichment HTTP server with graceful shutdown support.

Endpoints: /ai-status, /search-movie, /search-tmdb, /trending, /similar and
/recommendations, plus /health and /version.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config file re-validation (restart to apply changes)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		overrides := map[string]any{}
		if cmd.Flags().Changed("host") {
			overrides["server"] = map[string]any{"host": serverHost}
		}
		if cmd.Flags().Changed("port") {
			serverOverrides, _ := overrides["server"].(map[string]any)
			if serverOverrides == nil {
				serverOverrides = map[string]any{}
			}
			serverOverrides["port"] = serverPort
			overrides["server"] = serverOverrides
		}
		cfg, err := config.Load(ctx, overrides)
		if err != nil {
			return errwrap.WrapConfigInvalid(ctx, err, "config load failed")
		}

		namespace := config.AppName
		observability.InitServerLogger(config.AppName, cfg.Logging.Level, namespace)

		metricsPort := cfg.Metrics.Port
		if metricsPort == 0 {
			metricsPort = observability.DefaultMetricsPort
		}
		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(config.AppName, metricsPort, namespace); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
			}
		}

		application, err := buildApp(ctx)
		if err != nil {
			return errwrap.WrapInternal(ctx, err, "service wiring failed")
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", config.AppName),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", metricsPort),
			zap.String("cache_backend", cfg.Cache.Backend),
			zap.Bool("ai_configured", application.Requester != nil),
			zap.Bool("tmdb_configured", application.TMDB.Configured()),
			zap.Bool("omdb_configured", application.OMDB.Configured()))

		if cfg.Health.Enabled {
			handlers.InitHealthManager(versionInfo.Version)
			hm := handlers.GetHealthManager()
			if cfg.Metrics.Enabled {
				hm.RegisterChecker("telemetry", telemetryHealthChecker{})
			}
			hm.RegisterChecker("store", storeHealthChecker{app: application})
			hm.RegisterChecker("ai", aiHealthChecker{app: application})
		}

		uptimeCtx, stopUptime := context.WithCancel(ctx)
		defer stopUptime()
		go metrics.TrackUptime(uptimeCtx, time.Now(), 15*time.Second)

		srv := server.New(cfg.Server.Host, cfg.Server.Port, application.Movies())

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Shutdown handlers run LIFO: HTTP first, then the store, then the logger.
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			if err := application.Close(); err != nil {
				observability.ServerLogger.Warn("Closing store/cache failed", zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: re-validating configuration")
			if _, err := config.Load(ctx, overrides); err != nil {
				observability.ServerLogger.Error("Configuration is invalid", zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}
			observability.ServerLogger.Info("Configuration valid; restart to apply changes")
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(ctx); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(ctx, err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")
}
