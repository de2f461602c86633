package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/movienighthub/movienight/internal/cache"
	"github.com/movienighthub/movienight/internal/config"
	"github.com/movienighthub/movienight/internal/core/store"
	"github.com/movienighthub/movienight/internal/output"
)

var (
	cacheNamespace string
	cacheResetYes  bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the response cache",
	Long: `Inspect and clear cached enrichment and metadata responses.
Namespaces: enrichment, tmdb, omdb. The configured cache.backend is used.`,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		backend, cleanup, err := openCacheBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		entries, err := backend.List(cmd.Context(), cacheNamespace)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(cacheEntryViews(entries), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(payload))
			return err
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Namespace", "Key", "Hits", "Expires"})
		for _, entry := range entries {
			t.AppendRow(table.Row{entry.Namespace, entry.Key, entry.Hits, entry.ExpiresAt.UTC().Format(time.RFC3339)})
		}
		t.AppendFooter(table.Row{"", "", len(entries), "entries"})
		_, err = fmt.Fprintln(out, t.Render())
		return err
	},
}

var cacheResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(cacheNamespace) == "" && !cacheResetYes {
			return errors.New("resetting every namespace requires --yes")
		}

		backend, cleanup, err := openCacheBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		deleted, err := backend.Reset(cmd.Context(), cacheNamespace)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d cache entr(ies)\n", deleted)
		return err
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired entries from the libsql cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		purged, err := db.PurgeExpired(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired entr(ies)\n", purged)
		return err
	},
}

type cacheEntryView struct {
	Namespace string          `json:"namespace"`
	Key       string          `json:"key"`
	Hits      int64           `json:"hits"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Value     json.RawMessage `json:"value,omitempty"`
}

func cacheEntryViews(entries []cache.Entry) []cacheEntryView {
	views := make([]cacheEntryView, 0, len(entries))
	for _, entry := range entries {
		view := cacheEntryView{
			Namespace: entry.Namespace,
			Key:       entry.Key,
			Hits:      entry.Hits,
			CreatedAt: entry.CreatedAt,
			ExpiresAt: entry.ExpiresAt,
		}
		if json.Valid(entry.Value) {
			view.Value = entry.Value
		}
		views = append(views, view)
	}
	return views
}

// openCacheBackend opens the configured backend without resolving providers.
func openCacheBackend(ctx context.Context) (cache.Backend, func(), error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	var db *store.Store
	if !strings.EqualFold(strings.TrimSpace(cfg.Cache.Backend), "redis") {
		db, err = openStoreWith(ctx, cfg.Store)
		if err != nil {
			return nil, nil, err
		}
	}

	backend, closeBackend, err := openCache(ctx, cfg.Cache, db)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, nil, err
	}
	if backend == nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, nil, errors.New("cache is disabled (cache.backend: none)")
	}

	cleanup := func() {
		if closeBackend != nil {
			_ = closeBackend()
		}
		if db != nil {
			_ = db.Close()
		}
	}
	return backend, cleanup, nil
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheNamespace, "namespace", "", "Limit to one namespace (enrichment, tmdb, omdb)")
	cacheListCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
	cacheResetCmd.Flags().BoolVar(&cacheResetYes, "yes", false, "Confirm resetting every namespace")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheResetCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
