package event

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/core/common/validation"
	"github.com/frahmantamala/asubt-console/internal/notify"
	"github.com/frahmantamala/asubt-console/internal/screen"
	"github.com/frahmantamala/asubt-console/internal/session"
)

const (
	MsgLoadFailed   = "Не удалось загрузить мероприятия"
	MsgCreated      = "Мероприятие создано"
	MsgCreateFailed = "Не удалось создать мероприятие"
	MsgStatusSaved  = "Статус обновлён"
	MsgStatusFailed = "Не удалось обновить статус"
	MsgDeleted      = "Мероприятие удалено"
	MsgDeleteFailed = "Не удалось удалить мероприятие"
)

// Resource is the remote events collection.
type Resource interface {
	List(ctx context.Context, query url.Values) ([]Event, error)
	Get(ctx context.Context, id int64) (*Event, error)
	Create(ctx context.Context, payload interface{}) (*Event, error)
	Update(ctx context.Context, id int64, patch interface{}) (*Event, error)
	Remove(ctx context.Context, id int64) error
}

type SessionReader interface {
	Current() *session.Session
}

type Notifier interface {
	Success(ctx context.Context, screen, title, message string)
	Info(ctx context.Context, screen, title, message string)
	Failure(ctx context.Context, screen, message string, err error)
}

type ServiceAPI interface {
	Mount(ctx context.Context)
	Unmount()
	Load(ctx context.Context, filter Filter) error
	Events() []Event
	Loading() bool
	Get(ctx context.Context, id int64) (*Event, error)
	Create(ctx context.Context, dto CreateEventDTO) (*Event, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (*Event, error)
	Delete(ctx context.Context, id int64) error
	Calendar(ctx context.Context, year int, month time.Month) (Month, error)
	Upcoming() []Event
	Remind(ctx context.Context) int
	Today() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, which decides "today" for completion
// stamps, reminders and the calendar.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service is the events screen controller. The calendar screen shares its
// list.
type Service struct {
	resource Resource
	sessions SessionReader
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	lifetime *screen.Lifetime
	list     screen.Collection[Event]
	inflight screen.InFlight

	mu     sync.Mutex
	filter Filter
}

func NewService(resource Resource, sessions SessionReader, notifier Notifier, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		resource: resource,
		sessions: sessions,
		notifier: notifier,
		logger:   logger.With("screen", Screen),
		now:      time.Now,
		lifetime: screen.New(Screen),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Mount(ctx context.Context) {
	s.lifetime.Mount(ctx)
}

func (s *Service) Unmount() {
	s.lifetime.Unmount()
}

func (s *Service) Events() []Event {
	return s.list.Items()
}

func (s *Service) Loading() bool {
	return s.list.Loading()
}

// Today is the local calendar day of the service clock.
func (s *Service) Today() time.Time {
	now := s.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// Load refreshes the list. A failed load keeps the list already shown and
// emits one error notification.
func (s *Service) Load(ctx context.Context, filter Filter) error {
	return s.load(ctx, Screen, filter)
}

func (s *Service) load(ctx context.Context, screenName string, filter Filter) error {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()

	rctx, token, done := s.lifetime.Bind(ctx)
	defer done()

	s.list.SetLoading(true)
	defer s.list.SetLoading(false)

	items, err := s.resource.List(rctx, filter.Query())
	if !token.Current() {
		s.logger.Debug("dropping events response after unmount")
		return context.Canceled
	}
	if err != nil {
		s.notifier.Failure(ctx, screenName, MsgLoadFailed, err)
		return err
	}

	s.list.Replace(items)
	s.logger.Debug("events loaded", "count", len(items))
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Event, error) {
	rctx, token, done := s.lifetime.Bind(ctx)
	defer done()

	ev, err := s.resource.Get(rctx, id)
	if !token.Current() {
		return nil, context.Canceled
	}
	return ev, err
}

// Create posts dto with the signed-in user as responsible, then reloads.
// The server starts every event as planned.
func (s *Service) Create(ctx context.Context, dto CreateEventDTO) (*Event, error) {
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
	responsible := cur.Identity.ID
	dto.ResponsibleUserID = &responsible

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

	s.logger.Info("event created", "id", created.ID, "event_type", dto.EventType)
	s.notifier.Success(ctx, Screen, notify.TitleSuccess, MsgCreated)
	s.reload(ctx)
	return created, nil
}

// UpdateStatus changes the status of an event. Completing it stamps
// completed_date with today's local date.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (*Event, error) {
	release, ok := s.inflight.Acquire(fmt.Sprintf("status:%d", id))
	if !ok {
		return nil, internal.ErrSubmissionInFlight
	}
	defer release()

	patch := StatusPatch{Status: status}
	if status == StatusCompleted {
		today := s.now().Format(validation.DateLayout)
		patch.CompletedDate = &today
	}
	if verr := patch.Validate(); verr != nil {
		s.notifier.Failure(ctx, Screen, MsgStatusFailed, verr)
		return nil, verr
	}

	rctx, token, done := s.lifetime.Bind(ctx)
	defer done()

	updated, err := s.resource.Update(rctx, id, patch)
	if !token.Current() {
		return nil, context.Canceled
	}
	if err != nil {
		s.notifier.Failure(ctx, Screen, MsgStatusFailed, err)
		return nil, err
	}

	s.logger.Info("event status updated", "id", id, "status", status)
	s.notifier.Success(ctx, Screen, notify.TitleSuccess, MsgStatusSaved)
	s.reload(ctx)
	return updated, nil
}

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

	s.logger.Info("event deleted", "id", id)
	s.notifier.Success(ctx, Screen, notify.TitleSuccess, MsgDeleted)
	s.reload(ctx)
	return nil
}

// Calendar loads all events and lays them out for the given month. When the
// load fails the grid is built from the events already shown.
func (s *Service) Calendar(ctx context.Context, year int, month time.Month) (Month, error) {
	err := s.load(ctx, CalendarScreen, Filter{})
	return BuildMonth(s.list.Items(), year, month, s.now().Location()), err
}

func (s *Service) Upcoming() []Event {
	return Upcoming(s.list.Items(), s.Today())
}

// Remind emits the weekly reminder for the loaded events and returns the
// number of upcoming ones. Nothing is emitted when there are none.
func (s *Service) Remind(ctx context.Context) int {
	n := len(s.Upcoming())
	if n > 0 {
		s.notifier.Info(ctx, CalendarScreen, ReminderTitle, ReminderMessage(n))
	}
	return n
}

func (s *Service) reload(ctx context.Context) {
	s.mu.Lock()
	filter := s.filter
	s.mu.Unlock()
	_ = s.Load(ctx, filter)
}
