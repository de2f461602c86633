package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/enrich"
	"github.com/movienighthub/movienight/internal/llm"
	"github.com/movienighthub/movienight/internal/output"
)

var enrichMaxRetries int

var enrichCmd = &cobra.Command{
	Use:   "enrich <title>...",
	Short: "Enrich movie titles with genre, mood and streaming availability",
	Long: `Ask the configured AI provider for the genre, mood and US streaming
availability of each title. Results are cached; a provider rate limit is
reported per title instead of failing the command.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		outPath, outDir, err := resolveOutputTargets(cmd)
		if err != nil {
			return err
		}

		application, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close() // nolint:errcheck // best-effort cleanup

		if application.Requester == nil {
			return llm.ErrNotConfigured
		}

		var opts []enrich.Option
		if cmd.Flags().Changed("max-retries") {
			opts = append(opts, enrich.WithMaxRetries(enrichMaxRetries))
		}

		items := make([]*output.Enrichment, 0, len(args))
		for _, title := range args {
			title = strings.TrimSpace(title)
			if title == "" {
				continue
			}
			result := application.Requester.GetAIData(cmd.Context(), title, opts...)
			if result.RateLimited {
				logWarn("AI provider rate limited", zap.String("title", title))
			}
			items = append(items, &output.Enrichment{Title: title, Result: result})
		}

		if outDir != "" {
			outDir, err = ensureOutDir(outDir)
			if err != nil {
				return err
			}
			name := "enrich"
			if len(items) == 1 {
				name = sanitizeFilename(items[0].Title)
			}
			outPath = filepath.Join(outDir, fmt.Sprintf("%s.%s", name, outputExtension(format)))
		}

		rendered, err := output.FormatEnrichmentList(format, items)
		if err != nil {
			return err
		}

		sink, err := openSink(outPath)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		_, err = fmt.Fprintln(sink.writer, rendered)
		return err
	},
}

func init() {
	rootCmd.AddCommand(enrichCmd)
	addOutputFlags(enrichCmd)
	enrichCmd.Flags().IntVar(&enrichMaxRetries, "max-retries", enrich.DefaultMaxRetries, "Retries after a provider rate limit (0 disables)")
}
