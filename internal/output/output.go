// Package output renders enrichment results for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/movienighthub/movienight/internal/enrich"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// Enrichment is one title and the outcome of enriching it.
type Enrichment struct {
	Title  string        `json:"title"`
	Result enrich.Result `json:"result"`
}

// Formatter renders enrichment outcomes and recommendations.
type Formatter interface {
	FormatEnrichment(item *Enrichment) (string, error)
	FormatRecommendations(recs []enrich.Recommendation) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// FormatEnrichmentList renders several outcomes. JSON output is a single
// array rather than concatenated documents.
func FormatEnrichmentList(format Format, items []*Enrichment) (string, error) {
	if format == FormatJSON {
		data, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	formatter := NewFormatter(format)
	rendered := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		value, err := formatter.FormatEnrichment(item)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(value) == "" {
			continue
		}
		rendered = append(rendered, value)
	}

	return strings.Join(rendered, "\n\n"), nil
}
