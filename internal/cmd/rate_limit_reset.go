package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/movienighthub/movienight/internal/core/store"
	"github.com/movienighthub/movienight/internal/output"
)

type resetResult struct {
	Matched int   `json:"matched"`
	Deleted int64 `json:"deleted"`
	DryRun  bool  `json:"dry_run"`
}

var rateLimitResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear request windows and backoff for metadata upstreams",
	Long: `Clear persisted request windows so the next TMDB or OMDb call starts a
fresh window. Use --endpoint for one host (api.themoviedb.org), --prefix for
a group, or --all --yes for everything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := tableOrJSON(cmd)
		if err != nil {
			return err
		}
		query, dryRun, err := resetQuery(cmd)
		if err != nil {
			return err
		}

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		result := resetResult{DryRun: dryRun}
		if result.Matched, err = db.CountRateLimits(cmd.Context(), query); err != nil {
			return err
		}
		if !dryRun {
			if result.Deleted, err = db.ResetRateLimits(cmd.Context(), query); err != nil {
				return err
			}
		}

		sink, err := commandSink(cmd, "rate-limit.reset", format)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()
		return writeResetResult(sink.writer, format, result)
	},
}

// resetQuery builds the row selection from flags. --all is destructive and
// needs --yes unless it is a dry run.
func resetQuery(cmd *cobra.Command) (store.RateLimitQuery, bool, error) {
	all, _ := cmd.Flags().GetBool("all")
	endpoint, _ := cmd.Flags().GetString("endpoint")
	prefix, _ := cmd.Flags().GetString("prefix")
	yes, _ := cmd.Flags().GetBool("yes")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	query := store.RateLimitQuery{
		All:      all,
		Endpoint: strings.ToLower(strings.TrimSpace(endpoint)),
		Prefix:   strings.ToLower(strings.TrimSpace(prefix)),
	}
	if err := query.Validate(); err != nil {
		return query, false, err
	}
	if query.All && !yes && !dryRun {
		return query, false, errors.New("--all requires --yes (or use --dry-run)")
	}
	return query, dryRun, nil
}

func writeResetResult(w io.Writer, format output.Format, result resetResult) error {
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	if result.DryRun {
		_, err := fmt.Fprintf(w, "Would clear %d upstream window(s)\n", result.Matched)
		return err
	}
	_, err := fmt.Fprintf(w, "Cleared %d of %d upstream window(s)\n", result.Deleted, result.Matched)
	return err
}

func addResetFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("all", false, "Clear every upstream")
	cmd.Flags().String("endpoint", "", "Clear one upstream host (exact match)")
	cmd.Flags().String("prefix", "", "Clear upstream hosts starting with prefix")
	cmd.Flags().Bool("yes", false, "Confirm --all")
	cmd.Flags().Bool("dry-run", false, "Report what would be cleared")
}

func init() {
	addOutputFlags(rateLimitResetCmd)
	addResetFlags(rateLimitResetCmd)
}
