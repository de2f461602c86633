package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/config"
	"github.com/movienighthub/movienight/internal/observability"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the installation and report missing provider keys.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		logger := observability.CLILogger
		logger.Info("=== movienight doctor ===")
		logger.Info("")

		allChecks := true
		const totalChecks = 6
		step := func(n int, msg string) string { return fmt.Sprintf("[%d/%d] %s", n, totalChecks, msg) }

		version := crucible.GetVersion()
		logger.Info(step(1, "Checking runtime... ✅ "+runtime.Version()),
			zap.String("gofulmen_version", version.Gofulmen),
			zap.String("crucible_version", version.Crucible),
			zap.String("os", runtime.GOOS),
			zap.String("arch", runtime.GOARCH))

		configPath := config.DefaultConfigPath()
		switch {
		case configPath == "":
			logger.Warn(step(2, "Checking config file... ⚠️  config directory not resolved"))
		case fileExists(configPath):
			logger.Info(step(2, "Checking config file... ✅ "+configPath))
		default:
			logger.Info(step(2, "Checking config file... ✅ none (defaults and MOVIENIGHT_* env); run 'movienight doctor init'"))
		}

		cfg, err := config.Load(ctx)
		if err != nil {
			logger.Error(step(3, "Loading configuration... ❌"), zap.Error(err))
			logger.Warn("⚠️  Remaining checks skipped.")
			return
		}
		logger.Info(step(3, "Loading configuration... ✅"))

		application, err := buildApp(ctx)
		if err != nil {
			logger.Error(step(4, "Opening store and cache... ❌"), zap.Error(err))
			allChecks = false
		} else {
			defer application.Close() // nolint:errcheck // best-effort cleanup
			logger.Info(step(4, fmt.Sprintf("Opening store and cache... ✅ %s (cache: %s)", describeStore(cfg), valueOr(cfg.Cache.Backend, "libsql"))))
		}

		if cfg.AI.Configured() {
			logger.Info(step(5, "Checking AI provider... ✅ "+valueOr(cfg.AI.Provider, "anthropic")))
		} else {
			logger.Warn(step(5, "Checking AI provider... ⚠️  no API key (set ANTHROPIC_API_KEY)"))
			logger.Info("       Enrichment and recommendations are unavailable without it.")
		}

		missing := []string{}
		if strings.TrimSpace(cfg.TMDB.APIKey) == "" {
			missing = append(missing, "TMDB_API_KEY")
		}
		if strings.TrimSpace(cfg.OMDB.APIKey) == "" {
			missing = append(missing, "OMDB_API_KEY")
		}
		if len(missing) == 0 {
			logger.Info(step(6, "Checking metadata providers... ✅ TMDB, OMDb"))
		} else {
			logger.Warn(step(6, "Checking metadata providers... ⚠️  missing "+strings.Join(missing, ", ")))
		}

		logger.Info("")
		if allChecks {
			logger.Info("✅ All checks passed! Your movienight installation is healthy.")
		} else {
			logger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
	},
}

var (
	doctorInitForce bool
	doctorInitAIKey string
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		key := strings.TrimSpace(doctorInitAIKey)
		mode := os.FileMode(0644)
		if key != "" {
			mode = 0600
		}
		if err := os.WriteFile(configPath, []byte(buildInitConfig(key)), mode); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(cmd.Context()); err != nil {
			return err
		}
		observability.CLILogger.Info("Config is valid")
		return nil
	},
}

func buildInitConfig(aiKey string) string {
	lines := []string{
		"# movienight configuration",
		"server:",
		"  host: localhost",
		"  port: 8080",
		"cache:",
		"  backend: libsql",
		"  enrichment_ttl: 24h",
		"ai:",
		"  provider: anthropic",
	}
	if aiKey != "" {
		lines = append(lines, fmt.Sprintf("  api_key: %q", aiKey))
	} else {
		lines = append(lines, "  # api_key: set here or via ANTHROPIC_API_KEY")
	}
	lines = append(lines,
		"enrichment:",
		"  max_retries: 2",
		"  retry_delay: 2s",
		"queue:",
		"  server_url: http://localhost:8080",
		"  schedule: \"@every 30s\"",
		"",
	)
	return strings.Join(lines, "\n")
}

func describeStore(cfg *config.Config) string {
	if cfg.Store.URL != "" {
		return cfg.Store.URL + " (remote)"
	}
	path := cfg.Store.Path
	if path == "" {
		path = config.DefaultStorePath()
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func fileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
	doctorInitCmd.Flags().StringVar(&doctorInitAIKey, "ai-key", "", "AI provider API key to write into the config")
}
