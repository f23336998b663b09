// Package reminder periodically reminds the signed-in operator about
// events planned for the coming week.
package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/asubt-console/internal/event"
	"github.com/frahmantamala/asubt-console/internal/session"
	"github.com/robfig/cron/v3"
)

// Events is the part of the events controller a reminder run needs.
type Events interface {
	Load(ctx context.Context, filter event.Filter) error
	Remind(ctx context.Context) int
}

type SessionReader interface {
	Current() *session.Session
}

type Scheduler struct {
	cron     *cron.Cron
	schedule string
	events   Events
	sessions SessionReader
	timeout  time.Duration
	logger   *slog.Logger

	mu  sync.Mutex
	ctx context.Context
}

func NewScheduler(events Events, sessions SessionReader, schedule string, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scheduler{
		cron:     cron.New(),
		schedule: schedule,
		events:   events,
		sessions: sessions,
		timeout:  timeout,
		logger:   logger.With("component", "reminder"),
		ctx:      context.Background(),
	}
}

// Start registers the job and starts the cron loop. Runs use ctx for
// cancellation until Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(s.schedule, s.tick); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("reminder scheduler started", "schedule", s.schedule)
	return nil
}

// Stop halts the loop and waits for a running job, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Warn("reminder run failed", "error", err)
	}
}

// RunOnce refreshes the events and emits the reminder. Without a session
// it does nothing.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	if s.sessions.Current() == nil {
		s.logger.Debug("no session, skipping reminder")
		return 0, nil
	}
	if err := s.events.Load(ctx, event.Filter{}); err != nil {
		return 0, err
	}

	n := s.events.Remind(ctx)
	s.logger.Debug("reminder run finished", "upcoming", n)
	return n, nil
}
