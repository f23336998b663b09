package event_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/apischema"
	"github.com/frahmantamala/asubt-console/internal/core/events"
	"github.com/frahmantamala/asubt-console/internal/event"
	"github.com/frahmantamala/asubt-console/internal/notify"
	"github.com/frahmantamala/asubt-console/internal/remote"
	"github.com/frahmantamala/asubt-console/internal/resource"
	"github.com/frahmantamala/asubt-console/internal/session"
	"github.com/frahmantamala/asubt-console/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type eventsStub struct {
	mu       sync.Mutex
	list     string
	failWith map[string]int
	query    map[string][]string
	bodies   map[string]map[string]interface{}
}

func (s *eventsStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, _ := io.ReadAll(r.Body)
	var body map[string]interface{}
	_ = json.Unmarshal(raw, &body)
	s.bodies[r.Method] = body

	if code := s.failWith[r.Method]; code != 0 {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"error":"Event not found"}`))
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.query = r.URL.Query()
		_, _ = w.Write([]byte(s.list))
	case http.MethodPost:
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"event":{"id":5,"title":"СОУТ","event_type":"sout","status":"planned","created_at":"2024-05-15 10:00:00"}}`))
	case http.MethodPut:
		_, _ = w.Write([]byte(`{"success":true,"event":{"id":1,"title":"Вводный инструктаж","event_type":"training","status":"completed","completed_date":"2024-05-15"}}`))
	case http.MethodDelete:
		_, _ = w.Write([]byte(`{"success":true}`))
	}
}

const eventList = `{"events":[
	{"id":2,"title":"Медосмотр","event_type":"medical","status":"planned","planned_date":"2024-05-20","responsible_name":"Admin"},
	{"id":1,"title":"Вводный инструктаж","event_type":"training","status":"planned","planned_date":"2024-05-16"},
	{"id":3,"title":"Проверка","event_type":"inspection","status":"completed","planned_date":"2024-05-17"}
]}`

var _ = Describe("Service", func() {
	var (
		stub     *eventsStub
		server   *httptest.Server
		store    *session.Store
		recorder *notify.Recorder
		svc      *event.Service
		ctx      context.Context
		now      time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2024, time.May, 15, 23, 50, 0, 0, time.Local)
		stub = &eventsStub{list: eventList, failWith: map[string]int{}, bodies: map[string]map[string]interface{}{}}
		server = httptest.NewServer(stub)

		store = session.NewStore(session.NewMemorySlots(), logger.Discard())
		Expect(store.Set(ctx, session.Session{
			Token:    "tok",
			Identity: session.Identity{ID: 11, Email: "admin@asubt.ru", Role: session.RoleAdmin},
		})).To(Succeed())

		bus := events.NewEventBus(logger.Discard())
		recorder = notify.NewRecorder(20)
		bus.Subscribe(events.EventTypeNotification, recorder.Handle)

		schemas, err := apischema.NewValidator()
		Expect(err).NotTo(HaveOccurred())
		client := resource.New[event.Event](remote.NewClient(store, time.Second), resource.Spec{
			Name:       "events",
			Endpoint:   server.URL,
			ListKey:    "events",
			ItemKey:    "event",
			ListSchema: apischema.EventList,
			ItemSchema: apischema.EventEnvelope,
		}, schemas, logger.Discard())

		svc = event.NewService(client, store, notify.NewNotifier(bus, logger.Discard()), logger.Discard(),
			event.WithClock(func() time.Time { return now }))
		svc.Mount(ctx)
	})

	AfterEach(func() {
		svc.Unmount()
		server.Close()
	})

	It("loads with status and type filters", func() {
		Expect(svc.Load(ctx, event.Filter{Status: event.StatusPlanned, Type: event.TypeMedical})).To(Succeed())

		Expect(svc.Events()).To(HaveLen(3))
		Expect(stub.query).To(HaveKeyWithValue("status", []string{"planned"}))
		Expect(stub.query).To(HaveKeyWithValue("type", []string{"medical"}))
	})

	It("keeps the list and notifies once when a refresh fails", func() {
		Expect(svc.Load(ctx, event.Filter{})).To(Succeed())
		stub.failWith[http.MethodGet] = http.StatusBadGateway

		Expect(svc.Load(ctx, event.Filter{})).NotTo(Succeed())
		Expect(svc.Events()).To(HaveLen(3))
		Expect(recorder.Len()).To(Equal(1))
		Expect(recorder.Recent()[0].Message).To(Equal(event.MsgLoadFailed))
	})

	It("makes the signed-in user responsible for a new event", func() {
		date := "2024-05-30"
		ev, err := svc.Create(ctx, event.CreateEventDTO{Title: "СОУТ", EventType: event.TypeSOUT, PlannedDate: &date})
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Status).To(Equal(event.StatusPlanned))

		posted := stub.bodies[http.MethodPost]
		Expect(posted).To(HaveKeyWithValue("responsible_user_id", BeNumerically("==", 11)))
		Expect(posted).To(HaveKeyWithValue("planned_date", "2024-05-30"))
		Expect(recorder.Recent()[0].Message).To(Equal(event.MsgCreated))
	})

	It("rejects a malformed planned date", func() {
		date := "30.05.2024"
		_, err := svc.Create(ctx, event.CreateEventDTO{Title: "x", PlannedDate: &date})
		Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeValidation))
		Expect(stub.bodies).NotTo(HaveKey(http.MethodPost))
	})

	Describe("UpdateStatus", func() {
		It("stamps today's local date when completing", func() {
			ev, err := svc.UpdateStatus(ctx, 1, event.StatusCompleted)
			Expect(err).NotTo(HaveOccurred())
			Expect(ev.Status).To(Equal(event.StatusCompleted))

			put := stub.bodies[http.MethodPut]
			Expect(put).To(HaveKeyWithValue("id", BeNumerically("==", 1)))
			Expect(put).To(HaveKeyWithValue("status", "completed"))
			Expect(put).To(HaveKeyWithValue("completed_date", "2024-05-15"))
			Expect(recorder.Recent()[0].Message).To(Equal(event.MsgStatusSaved))
		})

		It("sends no completion date for other statuses", func() {
			_, err := svc.UpdateStatus(ctx, 1, event.StatusInProgress)
			Expect(err).NotTo(HaveOccurred())
			Expect(stub.bodies[http.MethodPut]).NotTo(HaveKey("completed_date"))
		})

		It("rejects unknown statuses", func() {
			_, err := svc.UpdateStatus(ctx, 1, event.Status("done"))
			Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeValidation))
			Expect(recorder.Recent()[0].Message).To(Equal(event.MsgStatusFailed))
		})
	})

	It("reports a failed delete once", func() {
		stub.failWith[http.MethodDelete] = http.StatusNotFound

		err := svc.Delete(ctx, 42)
		Expect(err).To(HaveOccurred())
		Expect(internal.UserMessage(err)).To(Equal("Event not found"))
		Expect(recorder.Len()).To(Equal(1))
		Expect(recorder.Recent()[0].Message).To(Equal(event.MsgDeleteFailed))
	})

	It("builds the calendar and reminds about the coming week", func() {
		grid, err := svc.Calendar(ctx, 2024, time.May)
		Expect(err).NotTo(HaveOccurred())
		Expect(grid.Days[19].Events).To(HaveLen(1))

		Expect(svc.Remind(ctx)).To(Equal(2))
		n := recorder.Recent()[0]
		Expect(n.Level).To(Equal(events.LevelInfo))
		Expect(n.Title).To(Equal(event.ReminderTitle))
		Expect(n.Message).To(Equal("У вас 2 предстоящих мероприятий на этой неделе"))
	})

	It("stays quiet when nothing is coming up", func() {
		now = now.AddDate(0, 1, 0)
		Expect(svc.Load(ctx, event.Filter{})).To(Succeed())
		Expect(svc.Remind(ctx)).To(BeZero())
		Expect(recorder.Len()).To(BeZero())
	})

	Describe("Handler", func() {
		var router chi.Router

		BeforeEach(func() {
			h := event.NewHandler(svc, logger.Discard())
			router = chi.NewRouter()
			router.Get("/admin/events", h.List)
			router.Put("/admin/events/{id}/status", h.UpdateStatus)
			router.Get("/admin/calendar", h.Calendar)
		})

		It("updates the status from the path id", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/admin/events/1/status", strings.NewReader(`{"status":"completed"}`)))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"completed_date":"2024-05-15"`))
		})

		It("renders the requested month", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/calendar?month=2024-09", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var view struct {
				Year     int               `json:"year"`
				Month    int               `json:"month"`
				Leading  int               `json:"leading"`
				Upcoming []json.RawMessage `json:"upcoming"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &view)).To(Succeed())
			Expect(view.Month).To(Equal(9))
			Expect(view.Leading).To(Equal(6))
			Expect(view.Upcoming).To(HaveLen(2))
		})

		It("rejects a bad month", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/calendar?month=sept", nil))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
