package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/movienighthub/movienight/internal/errors"
	"github.com/movienighthub/movienight/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check to verify the application can start successfully.",
	Run: func(cmd *cobra.Command, args []string) {
		if observability.CLILogger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
			return
		}
		logger := observability.CLILogger
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			logger.Error("❌ FAIL: Version information missing")
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		logger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		logger.Info("✅ Version information available")

		application, err := buildApp(cmd.Context())
		if err != nil {
			logger.Error("❌ FAIL: Service wiring failed")
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Service wiring failed", errwrap.WrapConfigInvalid(cmd.Context(), err, "service wiring failed"))
			return
		}
		defer application.Close() // nolint:errcheck // best-effort cleanup
		logger.Info("✅ Configuration loaded and store migrated")

		if _, err := application.Store.GetRateLimit(cmd.Context(), "health"); err != nil {
			logger.Error("❌ FAIL: Store query failed")
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Store query failed", errwrap.WrapDatabaseError(cmd.Context(), err, "store query failed"))
			return
		}
		logger.Info("✅ Store reachable")

		reportProvider(application.Requester != nil, "AI provider")
		reportProvider(application.TMDB.Configured(), "TMDB")
		reportProvider(application.OMDB.Configured(), "OMDb")

		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

// reportProvider notes optional providers without failing the check.
func reportProvider(configured bool, name string) {
	if configured {
		observability.CLILogger.Info("✅ " + name + " configured")
		return
	}
	observability.CLILogger.Warn("⚠️  " + name + " not configured")
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
