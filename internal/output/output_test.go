package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/movienighthub/movienight/internal/catalog"
	"github.com/movienighthub/movienight/internal/enrich"
)

func intPtr(v int) *int { return &v }

func arrival() *Enrichment {
	return &Enrichment{
		Title: "arrival",
		Result: enrich.Result{
			Success:  true,
			Title:    "Arrival",
			Director: "Denis Villeneuve",
			Year:     intPtr(2016),
			Data: &catalog.Fields{
				Genre:     "Sci-Fi",
				Mood:      "Thought-provoking",
				Streaming: []string{"Netflix", "Max"},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("md")
	require.NoError(t, err)
	require.Equal(t, FormatMarkdown, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestFormatters(t *testing.T) {
	item := arrival()

	tableRendered, err := NewFormatter(FormatTable).FormatEnrichment(item)
	require.NoError(t, err)
	require.Contains(t, tableRendered, "Arrival (2016)")
	require.Contains(t, tableRendered, "FIELD")
	require.Contains(t, tableRendered, "Sci-Fi")
	require.Contains(t, tableRendered, "Netflix, Max")
	require.Contains(t, tableRendered, "Denis Villeneuve")

	jsonRendered, err := NewFormatter(FormatJSON).FormatEnrichment(item)
	require.NoError(t, err)
	require.Contains(t, jsonRendered, "\"title\": \"arrival\"")
	require.Contains(t, jsonRendered, "\"genre\": \"Sci-Fi\"")

	markdownRendered, err := NewFormatter(FormatMarkdown).FormatEnrichment(item)
	require.NoError(t, err)
	require.Contains(t, markdownRendered, "## Arrival (2016)")
	require.Contains(t, markdownRendered, "| Mood | Thought-provoking |")
	require.Contains(t, markdownRendered, "**Status**: enriched")
}

func TestFormatEnrichmentListJSON(t *testing.T) {
	rendered, err := FormatEnrichmentList(FormatJSON, []*Enrichment{arrival(), {Title: "Heat"}})
	require.NoError(t, err)

	var decoded []Enrichment
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Len(t, decoded, 2)
	require.Equal(t, "Heat", decoded[1].Title)
	require.Nil(t, decoded[1].Result.Data)
}

func TestFormatEnrichmentListNonJSON(t *testing.T) {
	rendered, err := FormatEnrichmentList(FormatMarkdown, []*Enrichment{arrival(), nil, {Title: "Heat"}})
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(rendered, "## "))
	require.Contains(t, rendered, "## Heat")
	require.Contains(t, rendered, "**Status**: unavailable")
}

func TestStatusLabel(t *testing.T) {
	require.Equal(t, "enriched", statusLabel(enrich.Result{Success: true}))
	require.Equal(t, "enriched (cached)", statusLabel(enrich.Result{Success: true, Cached: true}))
	require.Equal(t, "rate limited, retry in 42s", statusLabel(enrich.Result{RateLimited: true, RemainingSeconds: intPtr(42)}))
	require.Equal(t, "rate limited", statusLabel(enrich.Result{RateLimited: true}))
	require.Equal(t, "unavailable", statusLabel(enrich.Result{}))
}

func TestDisplayTitleFallsBackToInput(t *testing.T) {
	require.Equal(t, "Heat", displayTitle(&Enrichment{Title: " Heat "}))
}

func TestMarkdownEscaping(t *testing.T) {
	item := &Enrichment{
		Title: "pipe|test",
		Result: enrich.Result{
			Success: true,
			Data:    &catalog.Fields{Genre: "Drama", Mood: "Dark"},
		},
	}

	rendered, err := NewFormatter(FormatMarkdown).FormatEnrichment(item)
	require.NoError(t, err)
	require.Contains(t, rendered, "pipe\\|test")
	require.Contains(t, rendered, "| Streaming | - |")
}

func TestFormatRecommendations(t *testing.T) {
	recs := []enrich.Recommendation{
		{Title: "Contact", Year: intPtr(1997), Genre: "Sci-Fi", Mood: "Thought-provoking", Reason: "First contact told with patience"},
		{Title: "Unknown"},
	}

	tableRendered, err := NewFormatter(FormatTable).FormatRecommendations(recs)
	require.NoError(t, err)
	require.Contains(t, tableRendered, "Contact")
	require.Contains(t, tableRendered, "1997")

	markdownRendered, err := NewFormatter(FormatMarkdown).FormatRecommendations(recs)
	require.NoError(t, err)
	require.Contains(t, markdownRendered, "| Unknown | - | - | - | - |")

	jsonRendered, err := NewFormatter(FormatJSON).FormatRecommendations(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", jsonRendered)
}
