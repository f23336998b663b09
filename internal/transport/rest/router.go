package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/asubt-console/internal/apischema"
	"github.com/frahmantamala/asubt-console/internal/auth"
	"github.com/frahmantamala/asubt-console/internal/document"
	"github.com/frahmantamala/asubt-console/internal/event"
	"github.com/frahmantamala/asubt-console/internal/guard"
	"github.com/frahmantamala/asubt-console/internal/notify"
	"github.com/frahmantamala/asubt-console/internal/obs"
	"github.com/frahmantamala/asubt-console/internal/report"
	"github.com/frahmantamala/asubt-console/internal/transport/middleware"
	"github.com/frahmantamala/asubt-console/internal/transport/swagger"
	"github.com/go-chi/chi"
	chimw "github.com/go-chi/chi/middleware"
)

// Handlers collects what the shell serves. Nil screen handlers are skipped.
type Handlers struct {
	Session       *auth.Handler
	Documents     *document.Handler
	Events        *event.Handler
	Reports       *report.Handler
	Guard         *guard.Guard
	Notifications *notify.Recorder
	Sessions      middleware.SessionReader

	Metrics     *obs.Metrics
	MetricsPath string

	DB       *sql.DB
	DBDriver string
}

func RegisterAllRoutes(router chi.Router, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(h.DB, h.DBDriver)

	router.Use(chimw.StripSlashes)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	if h.Metrics != nil {
		router.Use(h.Metrics.Instrument)
	}
	if h.Sessions != nil {
		router.Use(middleware.SessionContext(h.Sessions))
	}

	router.Get("/health", healthHandler.healthCheckHandler)
	router.Get("/ping", healthHandler.pingHandler)
	if h.Metrics != nil && h.MetricsPath != "" {
		router.Handle(h.MetricsPath, h.Metrics.Handler())
	}

	router.Get("/openapi.yml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(apischema.Spec())
	})
	router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))

	router.Route("/api", func(r chi.Router) {
		if h.Session != nil {
			r.Route("/session", func(sr chi.Router) {
				sr.Get("/", h.Session.GetSession)
				sr.Delete("/", h.Session.Logout)
				sr.Post("/login", h.Session.Login)
				sr.Post("/register", h.Session.Register)
				sr.Get("/check", h.Session.Check)
			})
		}
		if h.Notifications != nil {
			r.Get("/notifications", func(w http.ResponseWriter, _ *http.Request) {
				writeHealth(w, http.StatusOK, map[string]interface{}{"notifications": h.Notifications.Recent()})
			})
		}
	})

	if h.Guard == nil {
		return
	}

	if h.Documents != nil {
		router.Group(func(r chi.Router) {
			r.Use(h.Guard.Require("/admin/documents"))
			r.Get("/admin/documents", h.Documents.List)
			r.Post("/admin/documents", h.Documents.Create)
			r.Get("/admin/documents/{id}", h.Documents.Get)
			r.Delete("/admin/documents/{id}", h.Documents.Delete)
		})
	}

	if h.Events != nil {
		router.Group(func(r chi.Router) {
			r.Use(h.Guard.Require("/admin/events"))
			r.Get("/admin/events", h.Events.List)
			r.Post("/admin/events", h.Events.Create)
			r.Get("/admin/events/{id}", h.Events.Get)
			r.Put("/admin/events/{id}/status", h.Events.UpdateStatus)
			r.Delete("/admin/events/{id}", h.Events.Delete)
		})
		router.With(h.Guard.Require("/admin/calendar")).Get("/admin/calendar", h.Events.Calendar)
	}

	if h.Reports != nil {
		router.Group(func(r chi.Router) {
			r.Use(h.Guard.Require("/admin/reports"))
			r.Get("/admin/reports", h.Reports.Show)
			r.Post("/admin/reports/generate", h.Reports.Generate)
			r.Post("/admin/reports/export", h.Reports.Export)
		})
	}

	// Remaining screens of the route table, and everything unknown, resolve
	// through the guard.
	router.NotFound(h.Guard.Screen)
}
