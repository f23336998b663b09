// Package stubapi serves in-memory versions of the identity, documents,
// events and reports functions for local development and tests.
package stubapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/document"
	"github.com/frahmantamala/asubt-console/internal/event"
	"github.com/frahmantamala/asubt-console/internal/session"
	"github.com/frahmantamala/asubt-console/internal/transport"
	"github.com/go-chi/chi"
	"golang.org/x/crypto/bcrypt"
)

// Seeded accounts. They share the configured seed password.
const (
	SeedAdminEmail      = "admin@asubt.ru"
	SeedSuperAdminEmail = "superadmin@asubt.ru"
	SeedUserEmail       = "user@asubt.ru"
)

type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

type Server struct {
	*transport.BaseHandler
	cfg    internal.StubConfig
	tokens *TokenIssuer
	store  *store
	now    func() time.Time
}

// NewServer builds the stub and seeds its accounts and sample records.
func NewServer(cfg internal.StubConfig, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg.BCryptCost == 0 {
		cfg.BCryptCost = bcrypt.DefaultCost
	}
	s := &Server{
		BaseHandler: transport.NewBaseHandler(logger.With("component", "stubapi")),
		cfg:         cfg,
		tokens:      NewTokenIssuer(cfg.TokenSecret, cfg.TokenTTL),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tokens.now = s.now
	s.store = newStore(s.now)

	if err := s.seed(); err != nil {
		return nil, err
	}
	return s, nil
}

// Routes mounts one path per function, mirroring the separately deployed URLs.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/identity", s.identity)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireToken)

		pr.Get("/documents", s.getDocuments)
		pr.Post("/documents", s.createDocument)
		pr.Put("/documents", s.updateDocument)
		pr.Delete("/documents", s.deleteDocument)

		pr.Get("/events", s.getEvents)
		pr.Post("/events", s.createEvent)
		pr.Put("/events", s.updateEvent)
		pr.Delete("/events", s.deleteEvent)

		pr.Get("/reports", s.getReport)
		pr.Post("/reports", s.exportReport)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		s.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.tokens.Validate(s.ExtractToken(r)); err != nil {
			s.WriteError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) seed() error {
	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.SeedPassword), s.cfg.BCryptCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	accounts := []session.Identity{
		{Email: SeedAdminEmail, FullName: "Администратор", Role: session.RoleAdmin, Department: "Служба охраны труда", Position: "Специалист по ОТ"},
		{Email: SeedSuperAdminEmail, FullName: "Главный администратор", Role: session.RoleSuperAdmin},
		{Email: SeedUserEmail, FullName: "Сотрудник", Role: session.RoleUser, Department: "Цех №1", Position: "Оператор"},
	}
	var adminID int64
	for _, a := range accounts {
		id, _ := s.store.addUser(user{Identity: a, PasswordHash: string(hash), Active: true})
		if a.Role == session.RoleAdmin {
			adminID = id.ID
		}
	}

	content := "Порядок проведения вводного инструктажа по охране труда"
	s.store.addDocument(document.Document{Title: "Инструкция по охране труда", DocType: document.TypeInstruction, Content: &content, CreatedBy: &adminID})
	s.store.addDocument(document.Document{Title: "Приказ о назначении ответственных", DocType: document.TypeOrder, CreatedBy: &adminID})

	today := s.now()
	soon := today.AddDate(0, 0, 3).Format("2006-01-02")
	later := today.AddDate(0, 1, 0).Format("2006-01-02")
	s.store.addEvent(event.Event{Title: "Вводный инструктаж", EventType: event.TypeTraining, ResponsibleUserID: &adminID, PlannedDate: &soon})
	s.store.addEvent(event.Event{Title: "Периодический медосмотр", EventType: event.TypeMedical, ResponsibleUserID: &adminID, PlannedDate: &later})
	return nil
}

// queryID parses ?id=. ok is false when it is absent.
func queryID(r *http.Request) (int64, bool, error) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, true, err
}
