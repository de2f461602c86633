package output

import (
	"fmt"
	"strings"

	"github.com/movienighthub/movienight/internal/enrich"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

// FormatEnrichment renders one enrichment as Markdown.
func (f *MarkdownFormatter) FormatEnrichment(item *Enrichment) (string, error) {
	if item == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(displayTitle(item))))
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")

	result := item.Result
	if result.Data != nil {
		writeMarkdownRow(&sb, "Genre", valueOrDash(result.Data.Genre))
		writeMarkdownRow(&sb, "Mood", valueOrDash(result.Data.Mood))
		writeMarkdownRow(&sb, "Streaming", streamingLabel(result.Data.Streaming))
	}
	if result.Director != "" {
		writeMarkdownRow(&sb, "Director", result.Director)
	}

	sb.WriteString(fmt.Sprintf("\n**Status**: %s\n", statusLabel(result)))
	return sb.String(), nil
}

// FormatRecommendations renders picks as a Markdown table.
func (f *MarkdownFormatter) FormatRecommendations(recs []enrich.Recommendation) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Recommendations\n\n")
	sb.WriteString("| Title | Year | Genre | Mood | Why |\n")
	sb.WriteString("|-------|------|-------|------|-----|\n")
	for _, rec := range recs {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			escapeMarkdownCell(rec.Title),
			yearLabel(rec.Year),
			escapeMarkdownCell(valueOrDash(rec.Genre)),
			escapeMarkdownCell(valueOrDash(rec.Mood)),
			escapeMarkdownCell(valueOrDash(rec.Reason)),
		))
	}
	return sb.String(), nil
}

func writeMarkdownRow(sb *strings.Builder, field, value string) {
	sb.WriteString(fmt.Sprintf("| %s | %s |\n", escapeMarkdownCell(field), escapeMarkdownCell(value)))
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
