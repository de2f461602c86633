package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/movienighthub/movienight/internal/metrics"
)

// Check results reported per component.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusTimeout   = "timeout"
)

// ErrDegraded marks a component that still serves requests with reduced
// capability, such as an AI provider in cooldown. Checkers wrap it.
var ErrDegraded = stderrors.New("degraded")

// HealthResponse is the aggregate /health body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// StatusResponse is the body of the live/ready/startup endpoints.
type StatusResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthChecker is implemented by components that can report their health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthCheckerFunc adapts a function to HealthChecker.
type HealthCheckerFunc func(ctx context.Context) error

func (f HealthCheckerFunc) CheckHealth(ctx context.Context) error { return f(ctx) }

type healthEndpoint struct {
	name    string
	timeout time.Duration
	failure string
}

var (
	aggregateEndpoint = healthEndpoint{name: "aggregate", timeout: 5 * time.Second, failure: "aggregate health check failed"}
	liveEndpoint      = healthEndpoint{name: "live", timeout: 2 * time.Second, failure: "liveness check failed"}
	readyEndpoint     = healthEndpoint{name: "ready", timeout: 5 * time.Second, failure: "readiness check failed"}
	startupEndpoint   = healthEndpoint{name: "startup", timeout: 3 * time.Second, failure: "startup check failed"}
)

// HealthManager runs the registered checkers for every health endpoint.
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	version  string
	now      func() time.Time
}

// NewHealthManager creates a manager reporting version.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
		now:      time.Now,
	}
}

// RegisterChecker adds or replaces the checker called name.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// runHealthChecks runs checkers in name order. Once ctx expires the remaining
// checks are reported as timed out.
func (hm *HealthManager) runHealthChecks(ctx context.Context) map[string]string {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checkers))
	for name := range hm.checkers {
		names = append(names, name)
	}
	checkers := make(map[string]HealthChecker, len(hm.checkers))
	for name, checker := range hm.checkers {
		checkers[name] = checker
	}
	hm.mu.RUnlock()
	slices.Sort(names)

	checks := make(map[string]string, len(names))
	for _, name := range names {
		if ctx.Err() != nil {
			checks[name] = StatusTimeout
			continue
		}
		started := hm.now()
		status := classify(checkers[name].CheckHealth(ctx))
		checks[name] = status
		metrics.RecordHealthCheck(name, status, hm.now().Sub(started))
	}
	return checks
}

func classify(err error) string {
	switch {
	case err == nil:
		return StatusHealthy
	case stderrors.Is(err, ErrDegraded):
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

// overallStatus: any unhealthy check fails the endpoint; degraded or timed out
// checks degrade it.
func overallStatus(checks map[string]string) string {
	status := StatusHealthy
	for _, result := range checks {
		switch result {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded, StatusTimeout:
			status = StatusDegraded
		}
	}
	return status
}

func (hm *HealthManager) evaluate(r *http.Request, p healthEndpoint) (string, map[string]string) {
	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()
	checks := hm.runHealthChecks(ctx)
	return overallStatus(checks), checks
}

func (hm *HealthManager) serveEndpoint(w http.ResponseWriter, r *http.Request, p healthEndpoint) {
	status, checks := hm.evaluate(r, p)
	if status == StatusUnhealthy {
		respondWithError(w, r, healthEnvelope(p, status, checks))
		return
	}
	writeHealthJSON(w, StatusResponse{Status: status, Timestamp: hm.now().UTC()})
}

// HealthHandler serves GET /health with every check result.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	status, checks := hm.evaluate(r, aggregateEndpoint)
	if status == StatusUnhealthy {
		respondWithError(w, r, healthEnvelope(aggregateEndpoint, status, checks))
		return
	}
	writeHealthJSON(w, HealthResponse{
		Status:    status,
		Version:   hm.version,
		Timestamp: hm.now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// LivenessHandler serves GET /health/live.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveEndpoint(w, r, liveEndpoint)
}

// ReadinessHandler serves GET /health/ready.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveEndpoint(w, r, readyEndpoint)
}

// StartupHandler serves GET /health/startup.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	hm.serveEndpoint(w, r, startupEndpoint)
}

func writeHealthJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(body)
}

func healthEnvelope(p healthEndpoint, status string, checks map[string]string) *errors.ErrorEnvelope {
	envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", p.failure)

	details := map[string]interface{}{"status": status, "endpoint": p.name}
	if len(checks) > 0 {
		details["checks"] = checks
	}
	envelope = envelope.WithDetails(details)

	contextData := map[string]interface{}{"status": status, "endpoint": p.name}
	var failing []string
	for name, result := range checks {
		if result != StatusHealthy {
			failing = append(failing, name)
		}
	}
	if len(failing) > 0 {
		slices.Sort(failing)
		contextData["unhealthy_checks"] = failing
	}
	envelope, _ = envelope.WithContext(contextData)
	return envelope
}

var globalHealthManager *HealthManager

// InitHealthManager installs the manager behind the package-level handlers.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the installed manager, or nil.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

func withGlobalManager(p healthEndpoint, serve func(*HealthManager, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if globalHealthManager != nil {
			serve(globalHealthManager, w, r)
			return
		}
		envelope := errors.NewErrorEnvelope("SERVICE_UNAVAILABLE", "health manager not initialized")
		envelope = envelope.WithDetails(map[string]interface{}{"status": "unknown", "endpoint": p.name})
		respondWithError(w, r, envelope)
	}
}

// Package-level handlers delegate to the installed manager.
var (
	HealthHandler    = withGlobalManager(aggregateEndpoint, (*HealthManager).HealthHandler)
	LivenessHandler  = withGlobalManager(liveEndpoint, (*HealthManager).LivenessHandler)
	ReadinessHandler = withGlobalManager(readyEndpoint, (*HealthManager).ReadinessHandler)
	StartupHandler   = withGlobalManager(startupEndpoint, (*HealthManager).StartupHandler)
)
