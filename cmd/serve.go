package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/asubt-console/internal/auth"
	"github.com/frahmantamala/asubt-console/internal/document"
	"github.com/frahmantamala/asubt-console/internal/event"
	"github.com/frahmantamala/asubt-console/internal/obs"
	"github.com/frahmantamala/asubt-console/internal/reminder"
	"github.com/frahmantamala/asubt-console/internal/report"
	"github.com/frahmantamala/asubt-console/internal/transport/rest"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local shell server",
	Long:  `Serve the dashboard screens as JSON views behind the route guard.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return startHTTPServer(cmd.Context())
	},
}

func startHTTPServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	// screens live as long as the server
	deps.Documents.Mount(ctx)
	deps.Events.Mount(ctx)
	deps.Reports.Mount(ctx)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Session:       auth.NewHandler(deps.Auth, deps.Logger),
		Documents:     document.NewHandler(deps.Documents, deps.Logger),
		Events:        event.NewHandler(deps.Events, deps.Logger),
		Reports:       report.NewHandler(deps.Reports, deps.Logger),
		Guard:         deps.Guard,
		Notifications: deps.Notifications,
		Sessions:      deps.Sessions,
		Metrics:       metricsIfEnabled(deps),
		MetricsPath:   deps.Config.Observability.Metrics.Path,
		DB:            deps.DB,
		DBDriver:      deps.Config.Session.Driver,
	}, deps.Logger)

	var scheduler *reminder.Scheduler
	if deps.Config.Reminders.Enabled {
		scheduler = reminder.NewScheduler(deps.Events, deps.Sessions, deps.Config.Reminders.Schedule, deps.Config.Client.Timeout, deps.Logger)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start reminders: %w", err)
		}
	}

	cfg := deps.Config.Server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		deps.Logger.Info("starting shell server", "address", server.Addr, "base_url", cfg.BaseURL)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		deps.Logger.Info("shutting down")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shell server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			deps.Logger.Error("reminder shutdown error", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		deps.Logger.Error("server shutdown error", "error", err)
	}
	deps.Logger.Info("server stopped")
	return nil
}

func metricsIfEnabled(deps *Dependencies) *obs.Metrics {
	if !deps.Config.Observability.Metrics.Enabled {
		return nil
	}
	return deps.Metrics
}
