package metrics

import (
	"context"
	"time"

	"github.com/movienighthub/movienight/internal/observability"
)

// Server lifecycle and health metric names.
const (
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"
	ServerStartTime     = "app_server_start_time_seconds"
	ServerUptime        = "app_server_uptime_seconds"
)

// RecordHealthCheck counts one checker run by its result (healthy, degraded,
// unhealthy) and records how long it took.
func RecordHealthCheck(check string, status string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(HealthCheckTotal, 1, map[string]string{
		"check":  check,
		"status": status,
	})
	_ = observability.TelemetrySystem.Histogram(HealthCheckDuration, duration, map[string]string{
		"check": check,
	})
}

// SetServerStartTime publishes the server start as a Unix timestamp.
func SetServerStartTime(started time.Time) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(started.Unix()), nil)
}

// SetServerUptime publishes whole seconds since started.
func SetServerUptime(started, now time.Time) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ServerUptime, float64(int64(now.Sub(started).Seconds())), nil)
}

// TrackUptime publishes the start time once and the uptime every interval
// until ctx is done.
func TrackUptime(ctx context.Context, started time.Time, interval time.Duration) {
	SetServerStartTime(started)
	SetServerUptime(started, started)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			SetServerUptime(started, now)
		}
	}
}
