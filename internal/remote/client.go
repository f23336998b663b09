package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/obs"
	"github.com/frahmantamala/asubt-console/pkg/logger"
	"github.com/google/uuid"
)

const (
	HeaderAuthToken = "X-Auth-Token"
	HeaderUserID    = "X-User-Id"
	HeaderRequestID = "X-Request-ID"

	maxBodyBytes = 8 << 20
)

// Credentials is implemented by the session store.
type Credentials interface {
	Credentials() (token string, userID int64, ok bool)
}

type Request struct {
	// Resource labels metrics and logs: identity, documents, events, reports.
	Resource string
	Method   string
	URL      string
	Query    url.Values
	Body     interface{}
	// Token overrides the session token, used by ?action=validate.
	Token string
}

type Response struct {
	StatusCode int
	Body       []byte
	RequestID  string
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Client struct {
	httpClient     *http.Client
	credentials    Credentials
	metrics        *obs.Metrics
	onUnauthorized func(ctx context.Context)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMetrics(m *obs.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithUnauthorizedHook runs after any 401 seen by Send.
func WithUnauthorizedHook(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func NewClient(credentials Credentials, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		credentials: credentials,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetUnauthorizedHook replaces the hook after construction; used when the hook
// depends on something built from this client.
func (c *Client) SetUnauthorizedHook(fn func(ctx context.Context)) {
	c.onUnauthorized = fn
}

// Do performs one round trip. Only transport failures are returned as errors;
// every HTTP status comes back as a Response.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	target, err := buildURL(req.URL, req.Query)
	if err != nil {
		return nil, internal.NewNetworkError("Invalid endpoint URL", err)
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, internal.NewValidationError("Request body cannot be encoded", internal.ErrCodeInvalidInput).WithCause(err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, internal.NewNetworkError("Failed to build request", err)
	}

	requestID := internal.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(HeaderRequestID, requestID)

	token := req.Token
	if c.credentials != nil {
		if t, userID, ok := c.credentials.Credentials(); ok {
			if token == "" {
				token = t
			}
			httpReq.Header.Set(HeaderUserID, strconv.FormatInt(userID, 10))
		}
	}
	if token != "" {
		httpReq.Header.Set(HeaderAuthToken, token)
	}

	log := logger.From(ctx).With("resource", req.Resource, "method", req.Method, "request_id", requestID)
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			c.metrics.ObserveRemote(req.Resource, req.Method, obs.OutcomeCanceled, time.Since(start))
			log.Debug("request cancelled")
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.Resource, ctxErr)
		}
		c.metrics.ObserveRemote(req.Resource, req.Method, obs.OutcomeNetwork, time.Since(start))
		log.Warn("request failed", "error", err)
		return nil, internal.NewNetworkError("Network request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.Resource, ctxErr)
		}
		c.metrics.ObserveRemote(req.Resource, req.Method, obs.OutcomeNetwork, time.Since(start))
		return nil, internal.NewNetworkError("Failed to read response", err)
	}

	elapsed := time.Since(start)
	c.metrics.ObserveRemote(req.Resource, req.Method, outcomeOf(resp.StatusCode), elapsed)
	log.Debug("request completed", "status", resp.StatusCode, "duration_ms", elapsed.Milliseconds())

	return &Response{StatusCode: resp.StatusCode, Body: payload, RequestID: requestID}, nil
}

// Send is Do followed by Classify. A 401 also fires the unauthorized hook.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := Classify(resp); err != nil {
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return resp, err
	}
	return resp, nil
}

// Classify maps a non-2xx response onto the error taxonomy.
func Classify(resp *Response) error {
	if resp.OK() {
		return nil
	}

	message := ErrorMessage(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if message == "" {
			message = internal.ErrUnauthorized.Message
		}
		return internal.NewAuthError(message, internal.ErrCodeUnauthorized)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		if message == "" {
			message = fmt.Sprintf("Request rejected with status %d", resp.StatusCode)
		}
		appErr := internal.NewValidationError(message, internal.ErrCodeRejected)
		appErr.StatusCode = resp.StatusCode
		return appErr
	case resp.StatusCode >= 500:
		if message == "" {
			message = "Server error"
		}
		return internal.NewServerError(message, resp.StatusCode)
	default:
		return internal.NewProtocolError(fmt.Sprintf("Unexpected status %d", resp.StatusCode), internal.ErrCodeUnknownShape, nil)
	}
}

// ErrorMessage extracts the "error" field of an error body, or "".
func ErrorMessage(body []byte) string {
	var envelope struct {
		Error interface{} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	switch v := envelope.Error.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]interface{}:
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	return ""
}

// DecodeJSON decodes a success body; failures are protocol errors.
func DecodeJSON(body []byte, v interface{}) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return internal.NewProtocolError("Empty response body", internal.ErrCodeMalformedBody, nil)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return internal.NewProtocolError("Malformed response body", internal.ErrCodeMalformedBody, err)
	}
	return nil
}

func buildURL(base string, query url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint %q is not absolute", base)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func outcomeOf(status int) string {
	switch {
	case status >= 200 && status < 300:
		return obs.OutcomeOK
	case status >= 400 && status < 500:
		return obs.OutcomeClient
	case status >= 500:
		return obs.OutcomeServer
	default:
		return obs.OutcomeProtocol
	}
}
