package reminder_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/frahmantamala/asubt-console/internal/event"
	"github.com/frahmantamala/asubt-console/internal/reminder"
	"github.com/frahmantamala/asubt-console/internal/session"
	"github.com/frahmantamala/asubt-console/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestReminder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Reminder Suite")
}

type fakeEvents struct {
	loads    atomic.Int32
	reminds  atomic.Int32
	loadErr  error
	upcoming int
}

func (f *fakeEvents) Load(context.Context, event.Filter) error {
	f.loads.Add(1)
	return f.loadErr
}

func (f *fakeEvents) Remind(context.Context) int {
	f.reminds.Add(1)
	return f.upcoming
}

type fixedSession struct{ s *session.Session }

func (f fixedSession) Current() *session.Session { return f.s }

var signedIn = &session.Session{Token: "t", Identity: session.Identity{ID: 1, Email: "a@b.c", Role: session.RoleAdmin}}

var _ = Describe("Scheduler", func() {
	It("does nothing without a session", func() {
		events := &fakeEvents{upcoming: 3}
		s := reminder.NewScheduler(events, fixedSession{}, "@hourly", 0, logger.Discard())

		n, err := s.RunOnce(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
		Expect(events.loads.Load()).To(BeZero())
	})

	It("loads events and reminds", func() {
		events := &fakeEvents{upcoming: 2}
		s := reminder.NewScheduler(events, fixedSession{signedIn}, "@hourly", 0, logger.Discard())

		n, err := s.RunOnce(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
		Expect(events.reminds.Load()).To(Equal(int32(1)))
	})

	It("skips the reminder when loading fails", func() {
		events := &fakeEvents{loadErr: errors.New("down")}
		s := reminder.NewScheduler(events, fixedSession{signedIn}, "@hourly", 0, logger.Discard())

		_, err := s.RunOnce(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(events.reminds.Load()).To(BeZero())
	})

	It("runs on its schedule until stopped", func() {
		events := &fakeEvents{upcoming: 1}
		s := reminder.NewScheduler(events, fixedSession{signedIn}, "@every 1s", time.Second, logger.Discard())

		Expect(s.Start(context.Background())).To(Succeed())
		Eventually(events.reminds.Load, 3*time.Second, 50*time.Millisecond).Should(BeNumerically(">=", 1))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		Expect(s.Stop(ctx)).To(Succeed())
	})

	It("rejects a bad schedule", func() {
		s := reminder.NewScheduler(&fakeEvents{}, fixedSession{}, "every day", 0, logger.Discard())
		Expect(s.Start(context.Background())).NotTo(Succeed())
	})
})
