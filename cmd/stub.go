package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/asubt-console/internal/stubapi"
	"github.com/frahmantamala/asubt-console/internal/transport/middleware"
	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
)

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Serve in-memory remote endpoints for development",
	Long: `Serve identity, documents, events and reports at /identity, /documents,
/events and /reports with seeded admin@asubt.ru, superadmin@asubt.ru and
user@asubt.ru accounts.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStub(cmd)
	},
}

func runStub(cmd *cobra.Command) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	lg := initLogger(cfg)

	stub, err := stubapi.NewServer(cfg.Stub, lg)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(lg))
	router.Use(middleware.LoggingMiddleware(lg))
	router.Mount("/", stub.Routes())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Stub.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		lg.Info("starting stub endpoints", "address", server.Addr)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("stub server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
