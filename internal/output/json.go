package output

import (
	"encoding/json"

	"github.com/movienighthub/movienight/internal/enrich"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatEnrichment renders one enrichment as JSON.
func (f *JSONFormatter) FormatEnrichment(item *Enrichment) (string, error) {
	if item == nil {
		return "", nil
	}
	return f.marshal(item)
}

// FormatRecommendations renders picks as a JSON array, never null.
func (f *JSONFormatter) FormatRecommendations(recs []enrich.Recommendation) (string, error) {
	if recs == nil {
		recs = []enrich.Recommendation{}
	}
	return f.marshal(recs)
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
