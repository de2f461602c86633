package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/movienighthub/movienight/internal/config"
	"github.com/movienighthub/movienight/internal/output"
	"github.com/movienighthub/movienight/internal/queue"
)

var statusServer string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show AI provider availability of a running server",
	Long: `Query GET /ai-status on a running movienight server. The cooldown is
held in the server process, so this always asks the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		client, _, err := queueClient(cmd, statusServer)
		if err != nil {
			return err
		}

		status, err := client.Status(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(payload))
			return err
		}

		lines := []string{"AI Provider", "", "server: " + client.BaseURL}
		if status.Available {
			lines = append(lines, "status: available")
		} else {
			lines = append(lines, fmt.Sprintf("status: rate limited, retry in %ds", status.RemainingSeconds))
		}
		_, err = fmt.Fprint(out, ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return err
	},
}

// queueClient resolves the server URL from the flag, then queue.server_url.
func queueClient(cmd *cobra.Command, flagValue string) (*queue.Client, *config.Config, error) {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	serverURL := strings.TrimSpace(flagValue)
	if serverURL == "" {
		serverURL = cfg.Queue.ServerURL
	}
	if serverURL == "" {
		return nil, nil, fmt.Errorf("no server URL: pass --server or set queue.server_url")
	}

	client := queue.NewClient(serverURL)
	if cfg.Queue.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Queue.Timeout
	}
	return client, cfg, nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusServer, "server", "", "Server base URL (default queue.server_url)")
	statusCmd.Flags().String("output-format", string(output.FormatTable), "Output format: table|json")
}
