package web

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/facetrace/attendance/internal/web/handlers"
	"github.com/facetrace/attendance/internal/web/middleware"
)

func (s *Server) setupRoutes(log *zap.SugaredLogger) {
	// Create handlers
	identitiesHandler := handlers.NewIdentitiesHandler(s.repo, s.provider, log)
	recognizeHandler := handlers.NewRecognizeHandler(s.matcher, s.provider, log)
	attendanceHandler := handlers.NewAttendanceHandler(s.ledger, s.matcher, s.provider, s.detector, log)
	alertsHandler := handlers.NewAlertsHandler(s.alerts, log)
	analysisHandler := handlers.NewAnalysisHandler(s.analyzer, log)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Identities
		r.Get("/identities", identitiesHandler.List)
		r.Post("/identities", identitiesHandler.Enroll)

		// Recognition
		r.Post("/recognize", recognizeHandler.Recognize)
		r.Post("/recognize/multi", recognizeHandler.RecognizeMulti)

		// Attendance
		r.Post("/attendance/mark", attendanceHandler.Mark)
		r.Post("/attendance/manual", attendanceHandler.Manual)
		r.Get("/attendance", attendanceHandler.List)
		r.Get("/attendance/export", attendanceHandler.Export)
		r.Put("/attendance/{id}", attendanceHandler.Update)
		r.Delete("/attendance/{id}", attendanceHandler.Delete)
		r.Post("/attendance/dedupe", attendanceHandler.Dedupe)

		// Alerts
		r.Get("/alerts", alertsHandler.List)

		// Analysis
		r.Get("/analysis/summary", analysisHandler.Summary)
		r.Get("/analysis/insights", analysisHandler.Insights)

		// Destructive operations require the operator key when configured.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdminKey(&s.config.Admin))

			r.Delete("/identities/{id}", identitiesHandler.Delete)
			r.Delete("/attendance", attendanceHandler.DeleteAll)
		})
	})
}
