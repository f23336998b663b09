package document

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/notify"
	"github.com/frahmantamala/asubt-console/internal/screen"
	"github.com/frahmantamala/asubt-console/internal/session"
)

const (
	MsgLoadFailed   = "Не удалось загрузить документы"
	MsgCreated      = "Документ создан"
	MsgCreateFailed = "Не удалось создать документ"
	MsgDeleted      = "Документ удалён"
	MsgDeleteFailed = "Не удалось удалить документ"
)

// Resource is the remote documents collection.
type Resource interface {
	List(ctx context.Context, query url.Values) ([]Document, error)
	Get(ctx context.Context, id int64) (*Document, error)
	Create(ctx context.Context, payload interface{}) (*Document, error)
	Remove(ctx context.Context, id int64) error
}

type SessionReader interface {
	Current() *session.Session
}

type Notifier interface {
	Success(ctx context.Context, screen, title, message string)
	Failure(ctx context.Context, screen, message string, err error)
}

type ServiceAPI interface {
	Mount(ctx context.Context)
	Unmount()
	Load(ctx context.Context, filter Filter) error
	Documents() []Document
	Loading() bool
	Get(ctx context.Context, id int64) (*Document, error)
	Create(ctx context.Context, dto CreateDocumentDTO) (*Document, error)
	Delete(ctx context.Context, id int64) error
}

// Service is the documents screen controller.
type Service struct {
	resource Resource
	sessions SessionReader
	notifier Notifier
	logger   *slog.Logger

	lifetime *screen.Lifetime
	list     screen.Collection[Document]
	inflight screen.InFlight

	mu     sync.Mutex
	filter Filter
}

func NewService(resource Resource, sessions SessionReader, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		resource: resource,
		sessions: sessions,
		notifier: notifier,
		logger:   logger.With("screen", Screen),
		lifetime: screen.New(Screen),
	}
}

func (s *Service) Mount(ctx context.Context) {
	s.lifetime.Mount(ctx)
}

// Unmount cancels pending requests. Their results are dropped.
func (s *Service) Unmount() {
	s.lifetime.Unmount()
}

func (s *Service) Documents() []Document {
	return s.list.Items()
}

func (s *Service) Loading() bool {
	return s.list.Loading()
}

// Load refreshes the list. A failed load keeps the list already shown and
// emits one error notification.
func (s *Service) Load(ctx context.Context, filter Filter) error {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()

	rctx, token, done := s.lifetime.Bind(ctx)
	defer done()

	s.list.SetLoading(true)
	defer s.list.SetLoading(false)

	items, err := s.resource.List(rctx, filter.Query())
	if !token.Current() {
		s.logger.Debug("dropping documents response after unmount")
		return context.Canceled
	}
	if err != nil {
		s.notifier.Failure(ctx, Screen, MsgLoadFailed, err)
		return err
	}

	s.list.Replace(items)
	s.logger.Debug("documents loaded", "count", len(items))
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Document, error) {
	rctx, token, done := s.lifetime.Bind(ctx)
	defer done()

	doc, err := s.resource.Get(rctx, id)
	if !token.Current() {
		return nil, context.Canceled
	}
	return doc, err
}

// Create posts dto with the signed-in user as creator, then reloads the list.
func (s *Service) Create(ctx context.Context, dto CreateDocumentDTO) (*Document, error) {
	release, ok := s.inflight.Acquire("create")
	if !ok {
		return nil, internal.ErrSubmissionInFlight
	}
	defer release()

	dto = dto.Normalize()
	if verr := dto.Validate(); verr != nil {
		s.notifier.Failure(ctx, Screen, MsgCreateFailed, verr)
		return nil, verr
	}

	cur := s.sessions.Current()
	if cur == nil {
		s.notifier.Failure(ctx, Screen, MsgCreateFailed, internal.ErrNoSession)
		return nil, internal.ErrNoSession
	}
	creator := cur.Identity.ID
	dto.CreatedBy = &creator

	rctx, token, done := s.lifetime.Bind(ctx)
	defer done()

	created, err := s.resource.Create(rctx, dto)
	if !token.Current() {
		return nil, context.Canceled
	}
	if err != nil {
		s.notifier.Failure(ctx, Screen, MsgCreateFailed, err)
		return nil, err
	}

	s.logger.Info("document created", "id", created.ID, "doc_type", dto.DocType)
	s.notifier.Success(ctx, Screen, notify.TitleSuccess, MsgCreated)
	s.reload(ctx)
	return created, nil
}

// Delete removes a document. The server marks it deleted rather than
// dropping the row.
func (s *Service) Delete(ctx context.Context, id int64) error {
	release, ok := s.inflight.Acquire(fmt.Sprintf("delete:%d", id))
	if !ok {
		return internal.ErrSubmissionInFlight
	}
	defer release()

	rctx, token, done := s.lifetime.Bind(ctx)
	defer done()

	err := s.resource.Remove(rctx, id)
	if !token.Current() {
		return context.Canceled
	}
	if err != nil {
		s.notifier.Failure(ctx, Screen, MsgDeleteFailed, err)
		return err
	}

	s.logger.Info("document deleted", "id", id)
	s.notifier.Success(ctx, Screen, notify.TitleSuccess, MsgDeleted)
	s.reload(ctx)
	return nil
}

// reload refreshes with the last filter. Its failure is a separate
// notification and does not fail the mutation.
func (s *Service) reload(ctx context.Context) {
	s.mu.Lock()
	filter := s.filter
	s.mu.Unlock()
	_ = s.Load(ctx, filter)
}
