package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/movienighthub/movienight/internal/enrich"
)

// statusLabel summarizes how an enrichment ended.
func statusLabel(result enrich.Result) string {
	switch {
	case result.Success && result.Cached:
		return "enriched (cached)"
	case result.Success:
		return "enriched"
	case result.RateLimited:
		if result.RemainingSeconds != nil {
			return fmt.Sprintf("rate limited, retry in %ds", *result.RemainingSeconds)
		}
		return "rate limited"
	default:
		return "unavailable"
	}
}

// displayTitle prefers the title the model resolved, with its year.
func displayTitle(item *Enrichment) string {
	title := strings.TrimSpace(item.Result.Title)
	if title == "" {
		title = strings.TrimSpace(item.Title)
	}
	if item.Result.Year != nil {
		title = fmt.Sprintf("%s (%d)", title, *item.Result.Year)
	}
	return title
}

func yearLabel(year *int) string {
	if year == nil {
		return "-"
	}
	return strconv.Itoa(*year)
}

func streamingLabel(services []string) string {
	if len(services) == 0 {
		return "-"
	}
	return strings.Join(services, ", ")
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
