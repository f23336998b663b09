package report_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/apischema"
	"github.com/frahmantamala/asubt-console/internal/core/events"
	"github.com/frahmantamala/asubt-console/internal/notify"
	"github.com/frahmantamala/asubt-console/internal/obs"
	"github.com/frahmantamala/asubt-console/internal/remote"
	"github.com/frahmantamala/asubt-console/internal/report"
	"github.com/frahmantamala/asubt-console/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type reportsStub struct {
	gets     atomic.Int32
	failGet  atomic.Int32
	exported atomic.Value
}

func (s *reportsStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.gets.Add(1)
		if code := s.failGet.Load(); code != 0 {
			w.WriteHeader(int(code))
			_, _ = w.Write([]byte(`{"error":"db down"}`))
			return
		}
		typ := r.URL.Query().Get("type")
		if typ == "documents" {
			_, _ = w.Write([]byte(`{"type":"documents","generated_at":"2024-05-15T10:00:00","documents":[{"id":1,"title":"Приказ","doc_type":"order"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"type":"summary","generated_at":"2024-05-15T10:00:00","statistics":{"total_users":3,"total_documents":1,"pending_events":2,"active_incidents":0}}`))
	case http.MethodPost:
		raw, _ := io.ReadAll(r.Body)
		s.exported.Store(string(raw))
		var req struct {
			Type   string `json:"type"`
			Format string `json:"format"`
		}
		_ = json.Unmarshal(raw, &req)
		_, _ = w.Write([]byte(`{"success":true,"report":{"title":"Отчёт АСУБТ - ` + req.Type + `","generated_at":"2024-05-15T10:00:01","format":"` + req.Format + `"},"download_ready":true,"message":"Отчёт в формате ` + req.Format + ` готов к скачиванию"}`))
	}
}

var _ = Describe("Service", func() {
	var (
		stub     *reportsStub
		server   *httptest.Server
		recorder *notify.Recorder
		metrics  *obs.Metrics
		svc      *report.Service
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		stub = &reportsStub{}
		server = httptest.NewServer(stub)

		bus := events.NewEventBus(logger.Discard())
		recorder = notify.NewRecorder(20)
		bus.Subscribe(events.EventTypeNotification, recorder.Handle)
		metrics = obs.NewMetrics()

		schemas, err := apischema.NewValidator()
		Expect(err).NotTo(HaveOccurred())
		client := report.NewClient(remote.NewClient(nil, time.Second), server.URL, schemas, logger.Discard())
		svc = report.NewService(client, notify.NewNotifier(bus, logger.Discard()), logger.Discard(), report.Options{
			Metrics: metrics,
			Now:     func() time.Time { return time.Date(2024, time.May, 15, 9, 0, 0, 0, time.Local) },
		})
		svc.Mount(ctx)
	})

	AfterEach(func() {
		svc.Unmount()
		server.Close()
	})

	It("generates a report and caches it by type", func() {
		rep, err := svc.Generate(ctx, report.TypeSummary)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Statistics.Keys()).To(Equal([]string{"total_users", "total_documents", "pending_events", "active_incidents"}))
		Expect(svc.Current()).To(BeIdenticalTo(rep))
		Expect(recorder.Recent()[0].Message).To(Equal(report.MsgGenerated))

		cached, ok := svc.Cached(report.TypeSummary)
		Expect(ok).To(BeTrue())
		Expect(cached).To(BeIdenticalTo(rep))
		_, ok = svc.Cached(report.TypeEvents)
		Expect(ok).To(BeFalse())

		body := scrape(metrics)
		Expect(body).To(ContainSubstring(`asubt_report_cache_lookups_total{result="hit"} 1`))
		Expect(body).To(ContainSubstring(`asubt_report_cache_lookups_total{result="miss"} 1`))
	})

	It("keeps the shown report when generation fails", func() {
		first, err := svc.Generate(ctx, report.TypeSummary)
		Expect(err).NotTo(HaveOccurred())
		recorder.Reset()

		stub.failGet.Store(http.StatusInternalServerError)
		_, err = svc.Generate(ctx, report.TypeDocuments)

		Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeFetch))
		Expect(svc.Current()).To(BeIdenticalTo(first))
		Expect(recorder.Len()).To(Equal(1))
		Expect(recorder.Recent()[0].Message).To(Equal(report.MsgGenerateFailed))
	})

	It("rejects unknown report types locally", func() {
		_, err := svc.Generate(ctx, report.Type("weekly"))
		Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeValidation))
		Expect(stub.gets.Load()).To(BeZero())
	})

	Describe("Export", func() {
		It("needs a generated report", func() {
			_, err := svc.Export(ctx, report.FormatJSON)
			Expect(err).To(MatchError(internal.ErrReportNotGenerated))
			Expect(stub.exported.Load()).To(BeNil())
			Expect(recorder.Len()).To(Equal(1))
			Expect(recorder.Recent()[0].Message).To(Equal(report.MsgExportFailed))
		})

		It("saves the server's report object as json", func() {
			_, err := svc.Generate(ctx, report.TypeSummary)
			Expect(err).NotTo(HaveOccurred())

			out, err := svc.Export(ctx, report.FormatJSON)
			Expect(err).NotTo(HaveOccurred())
			Expect(stub.exported.Load()).To(MatchJSON(`{"type":"summary","format":"json"}`))
			Expect(out.Message).To(Equal("Отчёт в формате json готов к скачиванию"))
			Expect(out.Artifact.Filename).To(Equal("report_summary_2024-05-15.json"))
			Expect(string(out.Artifact.Body)).To(ContainSubstring("\n  \"title\": \"Отчёт АСУБТ - summary\""))
			Expect(recorder.Recent()[0].Message).To(Equal(out.Message))
		})

		It("renders csv from the report on screen", func() {
			_, err := svc.Generate(ctx, report.TypeDocuments)
			Expect(err).NotTo(HaveOccurred())

			out, err := svc.Export(ctx, report.FormatCSV)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Artifact.Filename).To(Equal("report_documents_2024-05-15.csv"))
			Expect(string(out.Artifact.Body)).To(HavePrefix("Документы\nid,title,doc_type\n1,Приказ,order\n"))
		})

		It("produces no artifact for pdf", func() {
			_, err := svc.Generate(ctx, report.TypeSummary)
			Expect(err).NotTo(HaveOccurred())

			out, err := svc.Export(ctx, report.FormatPDF)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Artifact).To(BeNil())
			Expect(out.Message).To(ContainSubstring("pdf"))
		})
	})

	Describe("Handler", func() {
		var router chi.Router

		BeforeEach(func() {
			h := report.NewHandler(svc, logger.Discard())
			router = chi.NewRouter()
			router.Get("/admin/reports", h.Show)
			router.Post("/admin/reports/generate", h.Generate)
			router.Post("/admin/reports/export", h.Export)
		})

		It("serves a repeated view from the cache", func() {
			for i := 0; i < 2; i++ {
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/reports?type=summary", nil))
				Expect(rec.Code).To(Equal(http.StatusOK))
			}
			Expect(stub.gets.Load()).To(Equal(int32(1)))
		})

		It("downloads the csv artifact", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reports/generate", strings.NewReader(`{"type":"documents"}`)))
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reports/export", strings.NewReader(`{"format":"csv"}`)))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring("report_documents_2024-05-15.csv"))
		})

		It("exports the report shown from the cache", func() {
			for _, typ := range []string{"summary", "documents"} {
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reports/generate", strings.NewReader(`{"type":"`+typ+`"}`)))
				Expect(rec.Code).To(Equal(http.StatusOK))
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/reports?type=summary", nil))
			Expect(rec.Body.String()).To(ContainSubstring(`"cached":true`))
			Expect(svc.Current().Type).To(Equal(report.TypeSummary))

			rec = httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reports/export", strings.NewReader(`{"format":"json"}`)))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(stub.exported.Load()).To(MatchJSON(`{"type":"summary","format":"json"}`))
			Expect(stub.gets.Load()).To(Equal(int32(2)))
		})

		It("refuses to export before generating", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reports/export", strings.NewReader(`{"format":"json"}`)))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})
})

func scrape(m *obs.Metrics) string {
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}
