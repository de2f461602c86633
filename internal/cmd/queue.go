package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/output"
	"github.com/movienighthub/movienight/internal/queue"
)

var (
	queueServer   string
	queueInterval time.Duration
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Background enrichment queue",
}

var queueRunCmd = &cobra.Command{
	Use:   "run <title>...",
	Short: "Queue titles and drain them through a running server",
	Long: `Queue the given titles and enrich them one at a time through the
server's /search-movie endpoint, waiting out AI provider cooldowns. Exits once
every title has been enriched or on Ctrl+C.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		client, cfg, err := queueClient(cmd, queueServer)
		if err != nil {
			return err
		}

		opts := []queue.Option{
			queue.WithCapacity(cfg.Queue.Capacity),
			queue.WithSchedule(cfg.Queue.Schedule),
		}
		if cmd.Flags().Changed("interval") {
			opts = append(opts, queue.WithSchedule(""), queue.WithInterval(queueInterval))
		}
		q := queue.New(client, client, opts...)

		for _, title := range args {
			if title = strings.TrimSpace(title); title != "" {
				q.Add(queue.Movie{Title: title})
			}
		}
		if q.Len() == 0 {
			return fmt.Errorf("no titles to enrich")
		}

		return runQueue(cmd.Context(), signals.NewManager(), q, cmd.OutOrStdout(), format)
	},
}

// runQueue drains q until it is empty or manager receives SIGINT/SIGTERM.
func runQueue(ctx context.Context, manager *signals.Manager, q *queue.Queue, w io.Writer, format output.Format) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	manager.OnShutdown(func(context.Context) error {
		cancel()
		return nil
	})
	go func() {
		if err := manager.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logWarn("Signal handler error", zap.Error(err))
		}
	}()
	defer manager.Stop()

	return drainQueue(ctx, q, w, format)
}

// drainQueue runs q until it is empty or ctx ends, writing each update.
func drainQueue(ctx context.Context, q *queue.Queue, w io.Writer, format output.Format) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- q.Run(ctx) }()

	for {
		select {
		case update := <-q.Updates():
			if err := writeUpdate(w, format, update); err != nil {
				return err
			}
			if q.Len() == 0 {
				cancel()
				return <-errCh
			}
		case err := <-errCh:
			return err
		}
	}
}

func writeUpdate(w io.Writer, format output.Format, update queue.Update) error {
	if format == output.FormatJSON {
		payload, err := json.Marshal(update)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(payload))
		return err
	}

	streaming := "-"
	if len(update.Movie.Streaming) > 0 {
		streaming = strings.Join(update.Movie.Streaming, ", ")
	}
	_, err := fmt.Fprintf(w, "%s: genre=%s mood=%s streaming=%s\n",
		update.Title, update.Movie.Genre, update.Movie.Mood, streaming)
	return err
}

func init() {
	queueRunCmd.Flags().StringVar(&queueServer, "server", "", "Server base URL (default queue.server_url)")
	queueRunCmd.Flags().DurationVar(&queueInterval, "interval", queue.DefaultInterval, "Drain interval (overrides queue.schedule)")
	queueRunCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")

	queueCmd.AddCommand(queueRunCmd)
	rootCmd.AddCommand(queueCmd)
}
