package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/movienighthub/movienight/internal/enrich"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatEnrichment renders one enrichment as a field/value table.
func (f *TableFormatter) FormatEnrichment(item *Enrichment) (string, error) {
	if item == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(displayTitle(item))
	t.AppendHeader(table.Row{"Field", "Value"})

	result := item.Result
	if result.Data != nil {
		t.AppendRow(table.Row{"Genre", valueOrDash(result.Data.Genre)})
		t.AppendRow(table.Row{"Mood", valueOrDash(result.Data.Mood)})
		t.AppendRow(table.Row{"Streaming", streamingLabel(result.Data.Streaming)})
	}
	if result.Director != "" {
		t.AppendRow(table.Row{"Director", result.Director})
	}
	t.AppendFooter(table.Row{"Status", statusLabel(result)})

	return t.Render(), nil
}

// FormatRecommendations renders picks one per row.
func (f *TableFormatter) FormatRecommendations(recs []enrich.Recommendation) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Title", "Year", "Genre", "Mood", "Why"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, rec := range recs {
		t.AppendRow(table.Row{
			rec.Title,
			yearLabel(rec.Year),
			valueOrDash(rec.Genre),
			valueOrDash(rec.Mood),
			valueOrDash(rec.Reason),
		})
	}
	if len(recs) == 0 {
		t.AppendRow(table.Row{"(no recommendations)", "", "", "", ""})
	}

	return t.Render(), nil
}
