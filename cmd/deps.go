package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/apischema"
	"github.com/frahmantamala/asubt-console/internal/auth"
	"github.com/frahmantamala/asubt-console/internal/core/events"
	"github.com/frahmantamala/asubt-console/internal/document"
	"github.com/frahmantamala/asubt-console/internal/event"
	"github.com/frahmantamala/asubt-console/internal/guard"
	"github.com/frahmantamala/asubt-console/internal/notify"
	"github.com/frahmantamala/asubt-console/internal/obs"
	"github.com/frahmantamala/asubt-console/internal/remote"
	"github.com/frahmantamala/asubt-console/internal/report"
	"github.com/frahmantamala/asubt-console/internal/resource"
	"github.com/frahmantamala/asubt-console/internal/session"
	"github.com/frahmantamala/asubt-console/internal/session/postgres"
	"github.com/frahmantamala/asubt-console/pkg/logger"
)

// Dependencies is the wired client core shared by the CLI and the shell.
type Dependencies struct {
	Config        *internal.Config
	Logger        *slog.Logger
	DB            *sql.DB
	Sessions      *session.Store
	Bus           *events.EventBus
	Notifications *notify.Recorder
	Notifier      *notify.Notifier
	Metrics       *obs.Metrics
	Remote        *remote.Client
	Auth          *auth.Client
	Guard         *guard.Guard
	Documents     *document.Service
	Events        *event.Service
	Reports       *report.Service
}

func initLogger(cfg *internal.Config) *slog.Logger {
	logger.InitWith(os.Stderr, cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	return logger.LoggerWrapper()
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := initLogger(cfg)

	gdb, sqlDB, err := postgres.Open(ctx, cfg.Session, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	store := session.NewStore(postgres.NewSlotRepository(gdb), lg)
	if err := store.Restore(ctx); err != nil {
		lg.Warn("session restore failed, starting signed out", "error", err)
	}

	var schemas *apischema.Validator
	if cfg.Client.ValidateResponses {
		if schemas, err = apischema.NewValidator(); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	bus := events.NewEventBus(lg)
	recorder := notify.NewRecorder(50)
	bus.Subscribe(events.EventTypeNotification, recorder.Handle)
	notifier := notify.NewNotifier(bus, lg)
	metrics := obs.NewMetrics()

	rc := remote.NewClient(store, cfg.Client.Timeout, remote.WithMetrics(metrics))
	authClient := auth.NewClient(rc, store, cfg.Endpoints.Identity, schemas, bus, lg)
	rc.SetUnauthorizedHook(authClient.Expire)

	documents := resource.New[document.Document](rc, resource.Spec{
		Name:       "documents",
		Endpoint:   cfg.Endpoints.Documents,
		ListKey:    "documents",
		ItemKey:    "document",
		ListSchema: apischema.DocumentList,
		ItemSchema: apischema.DocumentEnvelope,
	}, schemas, lg)
	eventsRes := resource.New[event.Event](rc, resource.Spec{
		Name:       "events",
		Endpoint:   cfg.Endpoints.Events,
		ListKey:    "events",
		ItemKey:    "event",
		ListSchema: apischema.EventList,
		ItemSchema: apischema.EventEnvelope,
	}, schemas, lg)

	return &Dependencies{
		Config:        cfg,
		Logger:        lg,
		DB:            sqlDB,
		Sessions:      store,
		Bus:           bus,
		Notifications: recorder,
		Notifier:      notifier,
		Metrics:       metrics,
		Remote:        rc,
		Auth:          authClient,
		Guard:         guard.New(store, notifier, metrics, lg),
		Documents:     document.NewService(documents, store, notifier, lg),
		Events:        event.NewService(eventsRes, store, notifier, lg),
		Reports: report.NewService(report.NewClient(rc, cfg.Endpoints.Reports, schemas, lg), notifier, lg, report.Options{
			CacheSize: cfg.Reports.CacheSize,
			CacheTTL:  cfg.Reports.CacheTTL,
			Metrics:   metrics,
		}),
	}, nil
}

// EchoNotifications prints every toast to w as it is published.
func (d *Dependencies) EchoNotifications(w io.Writer) {
	d.Bus.Subscribe(events.EventTypeNotification, func(_ context.Context, e events.Event) error {
		ev, ok := e.(*events.NotificationEvent)
		if !ok {
			return nil
		}
		_, err := fmt.Fprintf(w, "[%s] %s: %s\n", ev.Level, ev.Title, ev.Message)
		return err
	})
}

// Open navigates to path and mounts the screens behind it on ctx. A refused
// navigation returns the guard's error.
func (d *Dependencies) Open(ctx context.Context, path string) error {
	decision := d.Guard.Navigate(ctx, path)
	if !decision.Allowed() {
		return decision.Err()
	}

	d.Documents.Mount(ctx)
	d.Events.Mount(ctx)
	d.Reports.Mount(ctx)
	return nil
}

func (d *Dependencies) Close() {
	d.Documents.Unmount()
	d.Events.Unmount()
	d.Reports.Unmount()
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("session store close error", "error", err)
	}
}
