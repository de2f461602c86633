package metrics

import (
	"time"

	"github.com/movienighthub/movienight/internal/observability"
)

// Enrichment pipeline metrics
const (
	EnrichmentRequestsTotal = "enrichment_requests_total"
	EnrichmentAttemptsTotal = "enrichment_attempts_total"
	EnrichmentDuration      = "enrichment_duration_ms"
	AIRateLimited           = "ai_rate_limited"
	QueueDepth              = "enrichment_queue_depth"
	MetadataRequestsTotal   = "metadata_requests_total"
)

// Enrichment outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeCached      = "cached"
	OutcomeRateLimited = "rate_limited"
	OutcomeFailed      = "failed"
)

// RecordEnrichment records one logical enrichment and its outcome.
func RecordEnrichment(outcome string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		EnrichmentRequestsTotal,
		1,
		map[string]string{"outcome": outcome},
	)
	_ = observability.TelemetrySystem.Histogram(
		EnrichmentDuration,
		duration,
		map[string]string{"outcome": outcome},
	)
}

// RecordEnrichmentAttempt counts each provider call, including retries.
func RecordEnrichmentAttempt(provider string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			EnrichmentAttemptsTotal,
			1,
			map[string]string{"provider": provider},
		)
	}
}

// SetAIRateLimited mirrors the tracker state (1 = cooling down).
func SetAIRateLimited(limited bool) {
	value := 0.0
	if limited {
		value = 1
	}
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(AIRateLimited, value, nil)
	}
}

// SetQueueDepth records how many movies await enrichment.
func SetQueueDepth(depth int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(QueueDepth, float64(depth), nil)
	}
}

// RecordMetadataRequest counts TMDB/OMDb lookups by outcome.
func RecordMetadataRequest(provider string, status string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			MetadataRequestsTotal,
			1,
			map[string]string{
				"provider": provider,
				"status":   status,
			},
		)
	}
}
