package server

import (
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/movienighthub/movienight/internal/observability"
	"github.com/movienighthub/movienight/internal/server/handlers"
)

const envPrefix = "MOVIENIGHT_"

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	// Health: aggregate plus live/ready/startup for orchestrators.
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Proxies the Prometheus exporter.
	s.router.Get("/metrics", MetricsHandler)

	// Movie endpoints check the method themselves so a wrong method gets the
	// flat {"error": ...} body the web client expects.
	s.router.HandleFunc("/ai-status", s.movies.AIStatus)
	s.router.HandleFunc("/search-movie", s.movies.SearchMovie)
	s.router.HandleFunc("/search-tmdb", s.movies.SearchTMDB)
	s.router.HandleFunc("/trending", s.movies.Trending)
	s.router.HandleFunc("/similar", s.movies.Similar)
	s.router.HandleFunc("/recommendations", s.movies.Recommendations)

	// Admin signal endpoint (optional, requires MOVIENIGHT_ADMIN_TOKEN)
	s.registerAdminEndpoint()
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	adminToken := os.Getenv(envPrefix + "ADMIN_TOKEN")
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + envPrefix + "ADMIN_TOKEN set)")
		}
		return
	}

	// Create HTTP signal handler with bearer token auth and rate limiting
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10,  // 10 requests per minute
		RateBurst: 5,   // burst size
		Manager:   nil, // use default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
