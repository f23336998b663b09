package remote_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/remote"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRemote(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Remote Suite")
}

type staticCredentials struct {
	token  string
	userID int64
}

func (s staticCredentials) Credentials() (string, int64, bool) {
	return s.token, s.userID, s.token != ""
}

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		handler  http.HandlerFunc
		client   *remote.Client
		ctx      context.Context
		lastSeen *http.Request
	)

	BeforeEach(func() {
		ctx = context.Background()
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastSeen = r
			handler(w, r)
		}))
		client = remote.NewClient(staticCredentials{token: "t1", userID: 7}, time.Second)
	})

	AfterEach(func() {
		server.Close()
	})

	It("attaches session headers and a request id", func() {
		resp, err := client.Send(ctx, remote.Request{
			Resource: "documents",
			Method:   http.MethodGet,
			URL:      server.URL,
			Query:    url.Values{"id": {"3"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.OK()).To(BeTrue())
		Expect(lastSeen.Header.Get(remote.HeaderAuthToken)).To(Equal("t1"))
		Expect(lastSeen.Header.Get(remote.HeaderUserID)).To(Equal("7"))
		Expect(lastSeen.Header.Get(remote.HeaderRequestID)).NotTo(BeEmpty())
		Expect(lastSeen.URL.Query().Get("id")).To(Equal("3"))
	})

	It("reuses the request id carried by the context", func() {
		_, err := client.Do(internal.ContextWithRequestID(ctx, "req-1"), remote.Request{Method: http.MethodGet, URL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		Expect(lastSeen.Header.Get(remote.HeaderRequestID)).To(Equal("req-1"))
	})

	It("maps 5xx to a server error", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"db down"}`))
		}
		_, err := client.Send(ctx, remote.Request{Method: http.MethodPost, URL: server.URL, Body: map[string]string{"title": "Doc1"}})
		Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeServer))
		Expect(internal.UserMessage(err)).To(Equal("db down"))
	})

	It("maps 4xx to a validation error with the server message", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Title and doc_type are required"}`))
		}
		_, err := client.Send(ctx, remote.Request{Method: http.MethodPost, URL: server.URL})
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		Expect(appErr.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(appErr.Message).To(Equal("Title and doc_type are required"))
	})

	It("maps 401 to an auth error and fires the hook", func() {
		fired := 0
		client = remote.NewClient(nil, time.Second, remote.WithUnauthorizedHook(func(context.Context) { fired++ }))
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}
		_, err := client.Send(ctx, remote.Request{Method: http.MethodGet, URL: server.URL})
		Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeAuth))
		Expect(fired).To(Equal(1))
	})

	It("returns every status from Do without classifying", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}
		resp, err := client.Do(ctx, remote.Request{Method: http.MethodPost, URL: server.URL})
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusConflict))
	})

	It("reports transport failures as network errors", func() {
		server.Close()
		_, err := client.Do(ctx, remote.Request{Method: http.MethodGet, URL: server.URL})
		Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeNetwork))
	})

	It("passes cancellation through untouched", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}
		cctx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		_, err := client.Do(cctx, remote.Request{Method: http.MethodGet, URL: server.URL})
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(internal.TypeOf(err)).To(BeEmpty())
	})
})

var _ = Describe("DecodeJSON", func() {
	It("rejects empty bodies as protocol errors", func() {
		var v map[string]interface{}
		err := remote.DecodeJSON([]byte("  "), &v)
		Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeProtocol))
	})

	It("rejects malformed bodies as protocol errors", func() {
		var v map[string]interface{}
		err := remote.DecodeJSON([]byte("<html>"), &v)
		Expect(internal.TypeOf(err)).To(Equal(internal.ErrorTypeProtocol))
	})
})
