package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/movienighthub/movienight/internal/core/store"
	"github.com/movienighthub/movienight/internal/output"
)

// upstreamWindowView is the JSON shape of one persisted TMDB/OMDb window.
type upstreamWindowView struct {
	Upstream     string     `json:"upstream"`
	Requests     int        `json:"requests"`
	WindowStart  time.Time  `json:"window_start"`
	BackoffUntil *time.Time `json:"backoff_until,omitempty"`
	Last429At    *time.Time `json:"last_429_at,omitempty"`
	BackingOff   bool       `json:"backing_off"`
}

var rateLimitListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show request windows for TMDB and OMDb",
	Long: `Show the persisted request window of each metadata upstream: requests
counted in the current window and any backoff left by a 429 response.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := tableOrJSON(cmd)
		if err != nil {
			return err
		}
		prefix, _ := cmd.Flags().GetString("prefix")

		db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		query := store.RateLimitQuery{All: true}
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			query = store.RateLimitQuery{Prefix: prefix}
		}
		entries, err := db.ListRateLimits(cmd.Context(), query)
		if err != nil {
			return err
		}

		sink, err := commandSink(cmd, "rate-limit.list", format)
		if err != nil {
			return err
		}
		defer func() { _ = sink.close() }()

		return writeUpstreamWindows(sink.writer, format, entries, time.Now().UTC())
	},
}

func upstreamWindows(entries []store.RateLimitEntry, now time.Time) []upstreamWindowView {
	views := make([]upstreamWindowView, 0, len(entries))
	for _, entry := range entries {
		_, backingOff := entry.State.BackedOff(now)
		views = append(views, upstreamWindowView{
			Upstream:     entry.Endpoint,
			Requests:     entry.State.RequestCount,
			WindowStart:  entry.State.WindowStart,
			BackoffUntil: entry.State.BackoffUntil,
			Last429At:    entry.State.Last429At,
			BackingOff:   backingOff,
		})
	}
	return views
}

func writeUpstreamWindows(w io.Writer, format output.Format, entries []store.RateLimitEntry, now time.Time) error {
	views := upstreamWindows(entries, now)
	if format == output.FormatJSON {
		payload, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Metadata upstreams")
	t.AppendHeader(table.Row{"Upstream", "Requests", "Window start", "Backoff"})
	for i, view := range views {
		backoff := "-"
		if wait, ok := entries[i].State.BackedOff(now); ok {
			backoff = "retry in " + wait.Round(time.Second).String()
		}
		t.AppendRow(table.Row{view.Upstream, view.Requests, view.WindowStart.UTC().Format(time.RFC3339), backoff})
	}
	if len(views) == 0 {
		t.AppendRow(table.Row{"(no requests recorded)", "", "", ""})
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func init() {
	addOutputFlags(rateLimitListCmd)
	rateLimitListCmd.Flags().String("prefix", "", "Only upstreams whose host starts with prefix")
}
