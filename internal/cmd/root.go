package cmd

import (
	"context"
	"os"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/config"
	"github.com/movienighthub/movienight/internal/llm/driver"
	"github.com/movienighthub/movienight/internal/observability"
	"github.com/movienighthub/movienight/internal/server/handlers"
)

var (
	cfgFile   string
	verbose   bool
	traceFile string

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Movie Night Hub enrichment service",
	Long: `movienight enriches saved movies with AI-derived genre, mood and
streaming availability, and serves TMDB metadata for the Movie Night Hub.

Use the subcommands to perform specific operations.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	// Disable global telemetry early to prevent config loading from emitting
	// metrics to stdout. Server mode will initialize proper telemetry later.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	handlers.SetAppName(config.AppName)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/movienight/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "trace AI provider requests/responses to NDJSON file")
}

// initConfig wires the CLI logger, provider tracing and the config file flag.
// Values themselves are read lazily by config.Load in each command.
func initConfig() {
	observability.InitCLILogger(config.AppName, verbose)

	if cfgFile != "" {
		config.SetConfigFile(cfgFile)
		if _, err := os.Stat(cfgFile); err != nil {
			observability.CLILogger.Warn("Config file not readable", zap.String("path", cfgFile), zap.Error(err))
		}
	}

	if traceFile != "" {
		enableTracing(traceFile)
	}
}

func enableTracing(path string) {
	cleanup, err := driver.EnableTracing(path)
	if err != nil {
		observability.CLILogger.Warn("Failed to enable tracing", zap.Error(err))
		return
	}
	observability.CLILogger.Debug("AI provider tracing enabled", zap.String("file", path))
	// Tracing lasts for the whole process; the file closes on exit.
	_ = cleanup
}
