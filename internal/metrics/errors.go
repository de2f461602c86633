package metrics

import (
	"strconv"
	"strings"

	"github.com/movienighthub/movienight/internal/observability"
)

// Error metric names.
const (
	ErrorsTotalName      = "errors_total"
	PanicsTotalName      = "panics_total"
	ErrorsByEndpointName = "errors_by_endpoint"
)

// Routes served by the API. Anything else is labelled "/unknown" to keep
// label cardinality bounded.
var knownEndpoints = map[string]string{
	"/":                "/",
	"/version":         "/version",
	"/metrics":         "/metrics",
	"/ai-status":       "/ai-status",
	"/search-movie":    "/search-movie",
	"/search-tmdb":     "/search-tmdb",
	"/trending":        "/trending",
	"/similar":         "/similar",
	"/recommendations": "/recommendations",
}

// EndpointLabel maps a request path to a bounded metric label.
func EndpointLabel(path string) string {
	if path == "/health" || strings.HasPrefix(path, "/health/") {
		return "/health/*"
	}
	if label, ok := knownEndpoints[path]; ok {
		return label
	}
	return "/unknown"
}

// RecordError counts an error response by envelope code and HTTP status.
func RecordError(errorCode string, httpStatus int) {
	emitCounter(ErrorsTotalName, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordErrorByEndpoint counts an error response by route.
func RecordErrorByEndpoint(path string, errorCode string) {
	emitCounter(ErrorsByEndpointName, map[string]string{
		"endpoint":   EndpointLabel(path),
		"error_code": errorCode,
	})
}

// RecordPanic counts a recovered handler panic. endpoint should already be a
// bounded label.
func RecordPanic(endpoint string) {
	emitCounter(PanicsTotalName, map[string]string{"endpoint": endpoint})
}

func emitCounter(name string, labels map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(name, 1, labels)
}
