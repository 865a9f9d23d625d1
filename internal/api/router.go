package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-hmi/internal/auth"
	"github.com/nerrad567/gray-logic-hmi/internal/panel"
)

// healthCheckTimeout bounds each component check of GET /health.
const healthCheckTimeout = 2 * time.Second

// metricsPath is where the Prometheus registry is served.
const metricsPath = "/metrics"

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.metrics != nil {
		r.Handle(metricsPath, s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// System metrics (no auth required for basic monitoring)
		r.Get("/metrics", s.handleMetrics)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)
			r.Get("/auth/me", s.handleMe)

			r.Group(func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermView))

				r.Route("/alarms", func(r chi.Router) {
					r.Get("/active", s.handleActiveAlarms)
					r.Get("/log", s.handleEventLog)
					r.Get("/log/days", s.handleEventLogDays)
					r.Get("/history", s.handleAlarmHistory)
					r.Get("/stations", s.handleStationCounts)
				})

				r.Get("/points", s.handleListTables)
				r.Get("/points/{table}", s.handleGetTable)
				r.Get("/statistics", s.handleStatistics)

				r.Route("/production", func(r chi.Router) {
					r.Get("/daily", s.handleProductionDaily)
					r.Get("/monthly", s.handleProductionMonthly)
					r.Get("/records", s.handleRecordFiles)
					r.Get("/records/{index}", s.handleRecordFile)
				})

				r.Get("/views", s.handleGetViews)
				r.Put("/views/active", s.handleSetView)

				r.Get("/control", s.handleListControls)
			})

			// Permission depends on the control kind, checked in the handler.
			r.Post("/control/{control}/{action}", s.handleControl)

			r.With(s.requirePermission(auth.PermAdmin)).Get("/audit", s.handleListAuditLogs)
		})
	})

	// Operator panel UI
	r.Handle("/*", panel.Handler(s.cfg.PanelDir))

	return r
}

// handleHealth returns the server health status with one entry per checked
// component. Any failing component turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(s.health))
	healthy := true
	for name, checker := range s.health {
		if checker == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			healthy = false
			continue
		}
		components[name] = "ok"
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"machine":    s.machine,
		"version":    s.version,
		"components": components,
	})
}
