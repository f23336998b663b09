package guard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/core/events"
	"github.com/frahmantamala/asubt-console/internal/guard"
	"github.com/frahmantamala/asubt-console/internal/notify"
	"github.com/frahmantamala/asubt-console/internal/obs"
	"github.com/frahmantamala/asubt-console/internal/session"
	"github.com/frahmantamala/asubt-console/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestGuard(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Guard Suite")
}

func as(role session.Role) *session.Session {
	return &session.Session{Token: "t", Identity: session.Identity{ID: 1, Email: "u@asubt.ru", Role: role}}
}

var _ = Describe("Decide", func() {
	DescribeTable("routing rules",
		func(path string, s *session.Session, want guard.Outcome, location string) {
			d := guard.Decide(path, s)
			Expect(d.Outcome).To(Equal(want))
			Expect(d.Location).To(Equal(location))
		},
		Entry("login is public", "/login", nil, guard.Allow, ""),
		Entry("dashboard needs a session", "/dashboard", nil, guard.RedirectLogin, "/login"),
		Entry("root needs a session", "/", nil, guard.RedirectLogin, "/login"),
		Entry("admin screens need a session first", "/admin/documents", nil, guard.RedirectLogin, "/login"),
		Entry("user reaches the dashboard", "/dashboard", as(session.RoleUser), guard.Allow, ""),
		Entry("user is sent back from admin", "/admin", as(session.RoleUser), guard.RedirectDefault, "/dashboard"),
		Entry("user is sent back from documents", "/admin/documents", as(session.RoleUser), guard.RedirectDefault, "/dashboard"),
		Entry("user opens a module screen", "/admin/siz", as(session.RoleUser), guard.Allow, ""),
		Entry("admin opens reports", "/admin/reports/", as(session.RoleAdmin), guard.Allow, ""),
		Entry("admin is sent back from superadmin", "/superadmin", as(session.RoleAdmin), guard.RedirectDefault, "/dashboard"),
		Entry("superadmin opens everything", "/superadmin", as(session.RoleSuperAdmin), guard.Allow, ""),
		Entry("superadmin opens admin screens", "/admin/calendar?month=2024-05", as(session.RoleSuperAdmin), guard.Allow, ""),
		Entry("unknown paths are not found", "/nowhere", as(session.RoleSuperAdmin), guard.NotFound, ""),
		Entry("unknown admin paths are not found", "/admin/unknown", nil, guard.NotFound, ""),
	)

	It("maps refusals onto errors", func() {
		Expect(guard.Decide("/admin", nil).Err()).To(MatchError(internal.ErrNoSession))
		Expect(internal.TypeOf(guard.Decide("/admin", as(session.RoleUser)).Err())).To(Equal(internal.ErrorTypeForbidden))
		Expect(guard.Decide("/x", nil).Err()).To(MatchError(internal.ErrRouteNotFound))
		Expect(guard.Decide("/login", nil).Err()).To(BeNil())
	})

	It("lists every screen once", func() {
		seen := map[string]bool{}
		for _, r := range guard.Routes() {
			Expect(seen).NotTo(HaveKey(r.Path))
			seen[r.Path] = true
		}
		Expect(seen).To(HaveLen(15))
	})
})

var _ = Describe("Guard", func() {
	var (
		store    *session.Store
		recorder *notify.Recorder
		metrics  *obs.Metrics
		g        *guard.Guard
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = session.NewStore(session.NewMemorySlots(), logger.Discard())
		bus := events.NewEventBus(logger.Discard())
		recorder = notify.NewRecorder(10)
		bus.Subscribe(events.EventTypeNotification, recorder.Handle)
		metrics = obs.NewMetrics()
		g = guard.New(store, notify.NewNotifier(bus, logger.Discard()), metrics, logger.Discard())
	})

	It("emits exactly one denial per refused attempt", func() {
		Expect(store.Set(ctx, *as(session.RoleUser))).To(Succeed())

		d := g.Navigate(ctx, "/admin/events")
		Expect(d.Outcome).To(Equal(guard.RedirectDefault))
		Expect(recorder.Len()).To(Equal(1))
		n := recorder.Recent()[0]
		Expect(n.Title).To(Equal(guard.TitleDenied))
		Expect(n.Message).To(Equal(guard.MsgNoAdminRole))

		g.Navigate(ctx, "/superadmin")
		Expect(recorder.Len()).To(Equal(2))
		Expect(recorder.Recent()[0].Message).To(Equal(guard.MsgNoSuperAdmin))
	})

	It("redirects to login after logout without a notification", func() {
		Expect(store.Set(ctx, *as(session.RoleAdmin))).To(Succeed())
		Expect(g.Navigate(ctx, "/admin").Allowed()).To(BeTrue())

		Expect(store.Clear(ctx)).To(Succeed())
		for _, r := range guard.Routes() {
			if r.Access == guard.Public {
				continue
			}
			Expect(g.Navigate(ctx, r.Path).Location).To(Equal(guard.LoginPath))
		}
		Expect(recorder.Len()).To(BeZero())
	})

	Describe("Require", func() {
		var handler http.Handler

		BeforeEach(func() {
			handler = g.Require("/admin/documents")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}))
		})

		It("answers 401 with the login location without a session", func() {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/documents", nil))
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(rec.Header().Get("Location")).To(Equal("/login"))
		})

		It("answers 403 for a low role and counts the denial", func() {
			Expect(store.Set(ctx, *as(session.RoleUser))).To(Succeed())
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/documents/3", nil))

			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(rec.Body.String()).To(ContainSubstring(guard.MsgNoAdminRole))

			scraped := httptest.NewRecorder()
			metrics.Handler().ServeHTTP(scraped, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			Expect(scraped.Body.String()).To(ContainSubstring(`asubt_route_guard_denials_total{reason="insufficient_role",route="/admin/documents"} 1`))
		})

		It("passes admins through", func() {
			Expect(store.Set(ctx, *as(session.RoleAdmin))).To(Succeed())
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/documents", nil))
			Expect(rec.Code).To(Equal(http.StatusTeapot))
		})
	})

	It("describes module screens", func() {
		Expect(store.Set(ctx, *as(session.RoleUser))).To(Succeed())
		rec := httptest.NewRecorder()
		g.Screen(rec, httptest.NewRequest(http.MethodGet, "/admin/sout", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"module":true`))
	})
})
