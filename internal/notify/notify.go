package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/core/events"
)

const (
	TitleSuccess = "Успешно"
	TitleError   = "Ошибка"
)

// Publisher is the part of the event bus the notifier needs.
type Publisher interface {
	PublishSync(ctx context.Context, event events.Event) error
}

type Notifier struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewNotifier(publisher Publisher, logger *slog.Logger) *Notifier {
	return &Notifier{publisher: publisher, logger: logger}
}

func (n *Notifier) Success(ctx context.Context, screen, title, message string) {
	n.emit(ctx, events.NewNotificationEvent(events.LevelSuccess, title, message, screen))
}

func (n *Notifier) Info(ctx context.Context, screen, title, message string) {
	n.emit(ctx, events.NewNotificationEvent(events.LevelInfo, title, message, screen))
}

// Error emits one error toast for err. Cancelled work is not reported.
func (n *Notifier) Error(ctx context.Context, screen, title string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	n.emit(ctx, events.NewNotificationEvent(events.LevelError, title, internal.UserMessage(err), screen))
}

// Failure emits the screen's own error text for err. The detail of err only
// goes to the log. Cancelled work is not reported.
func (n *Notifier) Failure(ctx context.Context, screen, message string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	n.logger.Debug("screen action failed", "screen", screen, "error", err)
	n.emit(ctx, events.NewNotificationEvent(events.LevelError, TitleError, message, screen))
}

func (n *Notifier) emit(ctx context.Context, ev *events.NotificationEvent) {
	// the toast must still go out when the screen context was just cancelled
	if err := n.publisher.PublishSync(context.WithoutCancel(ctx), ev); err != nil {
		n.logger.Warn("notification handler failed", "title", ev.Title, "error", err)
	}
}

// Notification is the view of a toast kept for the shell.
type Notification struct {
	ID      string       `json:"id"`
	Level   events.Level `json:"level"`
	Title   string       `json:"title"`
	Message string       `json:"message"`
	Screen  string       `json:"screen,omitempty"`
	At      string       `json:"at"`
}

// Recorder keeps the most recent notifications in memory.
type Recorder struct {
	mu    sync.RWMutex
	items []Notification
	limit int
}

func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 50
	}
	return &Recorder{limit: limit}
}

// Handle is an events.Handler for EventTypeNotification.
func (r *Recorder) Handle(_ context.Context, event events.Event) error {
	ev, ok := event.(*events.NotificationEvent)
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{
		ID:      ev.ID,
		Level:   ev.Level,
		Title:   ev.Title,
		Message: ev.Message,
		Screen:  ev.Screen,
		At:      ev.Timestamp.Format(time.RFC3339),
	})
	if len(r.items) > r.limit {
		r.items = append([]Notification(nil), r.items[len(r.items)-r.limit:]...)
	}
	return nil
}

// Recent returns notifications newest first.
func (r *Recorder) Recent() []Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Notification, 0, len(r.items))
	for i := len(r.items) - 1; i >= 0; i-- {
		out = append(out, r.items[i])
	}
	return out
}

func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}
