package document_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/apischema"
	"github.com/frahmantamala/asubt-console/internal/core/events"
	"github.com/frahmantamala/asubt-console/internal/document"
	"github.com/frahmantamala/asubt-console/internal/notify"
	"github.com/frahmantamala/asubt-console/internal/remote"
	"github.com/frahmantamala/asubt-console/internal/resource"
	"github.com/frahmantamala/asubt-console/internal/session"
	"github.com/frahmantamala/asubt-console/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestDocument(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Document Suite")
}

// documentsStub answers like the documents endpoint. A non-zero status for a
// method makes that method fail with it.
type documentsStub struct {
	mu       sync.Mutex
	list     string
	failWith map[string]int
	posted   map[string]interface{}
	deleted  string
	hold     chan struct{}
	arrived  chan struct{}
}

func (s *documentsStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.arrived != nil {
		select {
		case s.arrived <- struct{}{}:
		default:
		}
	}
	if s.hold != nil {
		<-s.hold
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if code := s.failWith[r.Method]; code != 0 {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
		return
	}

	switch r.Method {
	case http.MethodGet:
		_, _ = w.Write([]byte(s.list))
	case http.MethodPost:
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &s.posted)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"document":{"id":3,"title":"New","doc_type":"order","created_at":"2024-05-01 10:00:00"}}`))
	case http.MethodDelete:
		s.deleted = r.URL.Query().Get("id")
		_, _ = w.Write([]byte(`{"success":true}`))
	}
}

const twoDocs = `{"documents":[
	{"id":2,"title":"Инструкция по охране труда","doc_type":"instruction","created_at":"2024-04-02 09:00:00","status":"active","creator_name":"Admin"},
	{"id":1,"title":"Приказ №1","doc_type":"order","created_at":"2024-04-01 09:00:00","status":"active"}
]}`

var _ = Describe("Service", func() {
	var (
		stub     *documentsStub
		server   *httptest.Server
		store    *session.Store
		recorder *notify.Recorder
		svc      *document.Service
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		stub = &documentsStub{list: twoDocs, failWith: map[string]int{}}
		server = httptest.NewServer(stub)

		store = session.NewStore(session.NewMemorySlots(), logger.Discard())
		Expect(store.Set(ctx, session.Session{
			Token:    "tok",
			Identity: session.Identity{ID: 7, Email: "admin@asubt.ru", FullName: "Admin", Role: session.RoleAdmin},
		})).To(Succeed())

		bus := events.NewEventBus(logger.Discard())
		recorder = notify.NewRecorder(20)
		bus.Subscribe(events.EventTypeNotification, recorder.Handle)

		schemas, err := apischema.NewValidator()
		Expect(err).NotTo(HaveOccurred())
		client := resource.New[document.Document](remote.NewClient(store, time.Second), resource.Spec{
			Name:       "documents",
			Endpoint:   server.URL,
			ListKey:    "documents",
			ItemKey:    "document",
			ListSchema: apischema.DocumentList,
			ItemSchema: apischema.DocumentEnvelope,
		}, schemas, logger.Discard())

		svc = document.NewService(client, store, notify.NewNotifier(bus, logger.Discard()), logger.Discard())
		svc.Mount(ctx)
	})

	AfterEach(func() {
		svc.Unmount()
		server.Close()
	})

	Describe("Load", func() {
		It("shows documents in server order", func() {
			Expect(svc.Load(ctx, document.Filter{})).To(Succeed())

			docs := svc.Documents()
			Expect(docs).To(HaveLen(2))
			Expect(docs[0].ID).To(Equal(int64(2)))
			Expect(docs[0].DocType).To(Equal(document.TypeInstruction))
			Expect(*docs[0].CreatorName).To(Equal("Admin"))
			Expect(docs[1].CreatorName).To(BeNil())
			Expect(recorder.Len()).To(BeZero())
		})

		It("keeps the displayed list when a refresh fails", func() {
			Expect(svc.Load(ctx, document.Filter{})).To(Succeed())

			stub.failWith[http.MethodGet] = http.StatusInternalServerError
			err := svc.Load(ctx, document.Filter{})

			Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeFetch))
			Expect(internal.HasType(err, internal.ErrorTypeServer)).To(BeTrue())
			Expect(svc.Documents()).To(HaveLen(2))
			Expect(recorder.Len()).To(Equal(1))
			Expect(recorder.Recent()[0].Message).To(Equal(document.MsgLoadFailed))
		})

		It("drops a response that arrives after unmount", func() {
			stub.hold = make(chan struct{})
			errc := make(chan error, 1)
			go func() { errc <- svc.Load(ctx, document.Filter{}) }()

			Eventually(svc.Loading).Should(BeTrue())
			svc.Unmount()
			close(stub.hold)

			Eventually(errc).Should(Receive(MatchError(context.Canceled)))
			Expect(svc.Documents()).To(BeEmpty())
			Expect(recorder.Len()).To(BeZero())
		})
	})

	Describe("Create", func() {
		It("attaches the signed-in user as creator and reloads", func() {
			doc, err := svc.Create(ctx, document.CreateDocumentDTO{Title: "  New ", DocType: document.TypeOrder})
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.ID).To(Equal(int64(3)))

			Expect(stub.posted).To(HaveKeyWithValue("created_by", BeNumerically("==", 7)))
			Expect(stub.posted).To(HaveKeyWithValue("title", "New"))
			Expect(stub.posted).NotTo(HaveKey("content"))
			Expect(svc.Documents()).To(HaveLen(2))

			Expect(recorder.Recent()[0].Title).To(Equal(notify.TitleSuccess))
			Expect(recorder.Recent()[0].Message).To(Equal(document.MsgCreated))
		})

		It("reports a server failure once and leaves the list alone", func() {
			Expect(svc.Load(ctx, document.Filter{})).To(Succeed())
			stub.failWith[http.MethodPost] = http.StatusInternalServerError

			_, err := svc.Create(ctx, document.CreateDocumentDTO{Title: "Doc1", DocType: document.TypeOther})

			Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeServer))
			Expect(svc.Documents()).To(HaveLen(2))
			Expect(recorder.Len()).To(Equal(1))
			Expect(recorder.Recent()[0].Level).To(Equal(events.LevelError))
			Expect(recorder.Recent()[0].Message).To(Equal(document.MsgCreateFailed))
		})

		It("rejects an empty title before calling the server", func() {
			_, err := svc.Create(ctx, document.CreateDocumentDTO{Title: "   "})

			Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeValidation))
			Expect(stub.posted).To(BeNil())
			Expect(recorder.Len()).To(Equal(1))
		})

		It("rejects a second submission while the first is pending", func() {
			stub.hold = make(chan struct{})
			stub.arrived = make(chan struct{}, 4)
			errc := make(chan error, 1)
			go func() {
				_, err := svc.Create(ctx, document.CreateDocumentDTO{Title: "A", DocType: document.TypeOrder})
				errc <- err
			}()
			Eventually(stub.arrived).Should(Receive())

			_, err := svc.Create(ctx, document.CreateDocumentDTO{Title: "B", DocType: document.TypeOrder})
			Expect(err).To(MatchError(internal.ErrSubmissionInFlight))

			close(stub.hold)
			Eventually(errc).Should(Receive(BeNil()))
		})

		It("requires a session", func() {
			Expect(store.Clear(ctx)).To(Succeed())
			_, err := svc.Create(ctx, document.CreateDocumentDTO{Title: "A"})
			Expect(err).To(MatchError(internal.ErrNoSession))
		})
	})

	Describe("Delete", func() {
		It("sends the id and confirms", func() {
			Expect(svc.Delete(ctx, 2)).To(Succeed())
			Expect(stub.deleted).To(Equal("2"))
			Expect(recorder.Recent()[0].Message).To(Equal(document.MsgDeleted))
		})

		It("reports a missing document", func() {
			stub.failWith[http.MethodDelete] = http.StatusNotFound
			err := svc.Delete(ctx, 99)

			Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeValidation))
			Expect(recorder.Recent()[0].Message).To(Equal(document.MsgDeleteFailed))
		})
	})

	Describe("Handler", func() {
		var router chi.Router

		BeforeEach(func() {
			h := document.NewHandler(svc, logger.Discard())
			router = chi.NewRouter()
			router.Get("/admin/documents", h.List)
			router.Post("/admin/documents", h.Create)
			router.Delete("/admin/documents/{id}", h.Delete)
		})

		It("lists documents and flags a stale list", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/documents", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"stale":false`))

			stub.failWith[http.MethodGet] = http.StatusBadGateway
			rec = httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/documents", nil))
			Expect(rec.Body.String()).To(ContainSubstring(`"stale":true`))
			Expect(rec.Body.String()).To(ContainSubstring(`"id":2`))
		})

		It("creates through the service", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/documents", strings.NewReader(`{"title":"X","doc_type":"order"}`)))
			Expect(rec.Code).To(Equal(http.StatusCreated))
		})

		It("rejects a bad id", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/documents/abc", nil))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
