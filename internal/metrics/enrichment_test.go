package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/telemetry"
	telemetrytesting "github.com/fulmenhq/gofulmen/telemetry/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movienighthub/movienight/internal/observability"
)

func setupTelemetry(t *testing.T) *telemetrytesting.FakeCollector {
	t.Helper()

	collector := telemetrytesting.NewFakeCollector()
	sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: collector})
	require.NoError(t, err)

	original := observability.TelemetrySystem
	observability.TelemetrySystem = sys
	t.Cleanup(func() { observability.TelemetrySystem = original })

	return collector
}

func TestEnrichmentMetricsEmitted(t *testing.T) {
	collector := setupTelemetry(t)

	RecordEnrichment(OutcomeRateLimited, 40*time.Millisecond)
	RecordEnrichmentAttempt("anthropic")
	RecordEnrichmentAttempt("anthropic")
	SetAIRateLimited(true)
	SetQueueDepth(3)
	RecordMetadataRequest("tmdb", "ok")

	assert.Greater(t, collector.CountMetricsByName(EnrichmentRequestsTotal), 0)
	assert.Greater(t, collector.CountMetricsByName(EnrichmentAttemptsTotal), 0)
	assert.Greater(t, collector.CountMetricsByName(EnrichmentDuration), 0)
	assert.Greater(t, collector.CountMetricsByName(AIRateLimited), 0)
	assert.Greater(t, collector.CountMetricsByName(QueueDepth), 0)
	assert.Greater(t, collector.CountMetricsByName(MetadataRequestsTotal), 0)
}

func TestMetricsNoopWithoutTelemetry(t *testing.T) {
	original := observability.TelemetrySystem
	observability.TelemetrySystem = nil
	defer func() { observability.TelemetrySystem = original }()

	RecordEnrichment(OutcomeSuccess, time.Millisecond)
	SetAIRateLimited(false)
	SetQueueDepth(0)
}

func TestEndpointLabel(t *testing.T) {
	assert.Equal(t, "/health/*", EndpointLabel("/health"))
	assert.Equal(t, "/health/*", EndpointLabel("/health/ready"))
	assert.Equal(t, "/search-movie", EndpointLabel("/search-movie"))
	assert.Equal(t, "/recommendations", EndpointLabel("/recommendations"))
	assert.Equal(t, "/unknown", EndpointLabel("/search-movie/../../etc"))
	assert.Equal(t, "/unknown", EndpointLabel("/healthz"))
}

func TestErrorAndPanicMetrics(t *testing.T) {
	collector := setupTelemetry(t)

	RecordError("RATE_LIMITED", 429)
	RecordErrorByEndpoint("/search-movie", "RATE_LIMITED")
	RecordPanic("/similar")

	assert.Greater(t, collector.CountMetricsByName(ErrorsTotalName), 0)
	assert.Greater(t, collector.CountMetricsByName(ErrorsByEndpointName), 0)
	assert.Greater(t, collector.CountMetricsByName(PanicsTotalName), 0)
}

func TestServerLifecycleMetrics(t *testing.T) {
	collector := setupTelemetry(t)

	started := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	RecordHealthCheck("ai", "degraded", 3*time.Millisecond)
	SetServerStartTime(started)
	SetServerUptime(started, started.Add(90*time.Second))

	assert.Greater(t, collector.CountMetricsByName(HealthCheckTotal), 0)
	assert.Greater(t, collector.CountMetricsByName(HealthCheckDuration), 0)
	assert.Greater(t, collector.CountMetricsByName(ServerStartTime), 0)
	assert.Greater(t, collector.CountMetricsByName(ServerUptime), 0)
}

func TestTrackUptimeStopsWithContext(t *testing.T) {
	collector := setupTelemetry(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		TrackUptime(ctx, time.Now(), time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return collector.CountMetricsByName(ServerUptime) > 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TrackUptime did not return after cancel")
	}
}
