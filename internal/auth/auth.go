package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/apischema"
	"github.com/frahmantamala/asubt-console/internal/core/events"
	"github.com/frahmantamala/asubt-console/internal/remote"
	"github.com/frahmantamala/asubt-console/internal/session"
)

const resourceName = "identity"

const (
	actionLogin    = "login"
	actionRegister = "register"
	actionValidate = "validate"
)

// SessionStore is the subset of *session.Store the client writes to.
type SessionStore interface {
	Set(ctx context.Context, sess session.Session) error
	Clear(ctx context.Context) error
	Current() *session.Session
}

type EventPublisher interface {
	PublishSync(ctx context.Context, event events.Event) error
}

// ServiceAPI is what the CLI and shell depend on.
type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (*session.Session, error)
	Register(ctx context.Context, dto RegisterDTO) (*session.Session, error)
	Logout(ctx context.Context) error
	Validate(ctx context.Context) (bool, error)
	Current() *session.Session
}

// Client exchanges credentials for a session against the identity endpoint.
type Client struct {
	remote   *remote.Client
	store    SessionStore
	endpoint string
	schemas  *apischema.Validator
	events   EventPublisher
	logger   *slog.Logger
}

func NewClient(rc *remote.Client, store SessionStore, endpoint string, schemas *apischema.Validator, publisher EventPublisher, logger *slog.Logger) *Client {
	return &Client{
		remote:   rc,
		store:    store,
		endpoint: endpoint,
		schemas:  schemas,
		events:   publisher,
		logger:   logger.With("component", "auth_client"),
	}
}

type authSuccess struct {
	Token string           `json:"token"`
	User  session.Identity `json:"user"`
}

func (c *Client) Login(ctx context.Context, dto LoginDTO) (*session.Session, error) {
	dto = dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return c.exchange(ctx, actionLogin, dto, internal.ErrCodeLoginFailed, "Login failed")
}

func (c *Client) Register(ctx context.Context, dto RegisterDTO) (*session.Session, error) {
	dto = dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	return c.exchange(ctx, actionRegister, dto, internal.ErrCodeRegistrationFailed, "Registration failed")
}

// exchange posts body to the given action and stores the session on success.
// Nothing is stored unless the success body carries a token and a valid user.
func (c *Client) exchange(ctx context.Context, action string, body interface{}, code internal.ErrorCode, fallback string) (*session.Session, error) {
	resp, err := c.remote.Do(ctx, remote.Request{
		Resource: resourceName,
		Method:   http.MethodPost,
		URL:      c.endpoint,
		Query:    url.Values{"action": {action}},
		Body:     body,
	})
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		message := remote.ErrorMessage(resp.Body)
		if message == "" {
			message = fallback
		}
		c.logger.Info("identity endpoint rejected request", "action", action, "status", resp.StatusCode)
		appErr := internal.NewAuthError(message, code)
		appErr.StatusCode = resp.StatusCode
		return nil, appErr
	}

	if err := c.schemas.Validate(apischema.AuthSuccess, resp.Body); err != nil {
		return nil, err
	}

	var payload authSuccess
	if err := remote.DecodeJSON(resp.Body, &payload); err != nil {
		return nil, err
	}
	if payload.Token == "" {
		return nil, internal.NewProtocolError("Identity response has no token", internal.ErrCodeUnknownShape, nil)
	}
	if err := payload.User.Validate(); err != nil {
		return nil, internal.NewProtocolError("Identity response has no usable user", internal.ErrCodeUnknownShape, err)
	}

	sess := session.Session{Token: payload.Token, Identity: payload.User}
	if err := c.store.Set(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	c.logger.Info("signed in", "action", action, "user_id", sess.Identity.ID, "role", sess.Identity.Role)
	c.publish(ctx, events.NewSignedInEvent(sess.Identity.ID, sess.Identity.Email))
	return &sess, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.signOut(ctx, "logout")
}

// Expire drops a session the server no longer accepts. It is wired as the
// remote client's unauthorized hook.
func (c *Client) Expire(ctx context.Context) {
	if c.store.Current() == nil {
		return
	}
	if err := c.signOut(ctx, "unauthorized"); err != nil {
		c.logger.Warn("failed to clear expired session", "error", err)
	}
}

func (c *Client) signOut(ctx context.Context, reason string) error {
	cur := c.store.Current()
	if err := c.store.Clear(ctx); err != nil {
		return err
	}
	if cur != nil {
		c.logger.Info("signed out", "user_id", cur.Identity.ID, "reason", reason)
		c.publish(ctx, events.NewSignedOutEvent(cur.Identity.ID, cur.Identity.Email, reason))
	}
	return nil
}

// Validate asks the identity endpoint whether the stored token is still
// accepted. A rejected token clears the session and reports false.
func (c *Client) Validate(ctx context.Context) (bool, error) {
	cur := c.store.Current()
	if cur == nil {
		return false, internal.ErrNoSession
	}

	resp, err := c.remote.Do(ctx, remote.Request{
		Resource: resourceName,
		Method:   http.MethodPost,
		URL:      c.endpoint,
		Query:    url.Values{"action": {actionValidate}},
		Token:    cur.Token,
	})
	if err != nil {
		return false, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.Expire(ctx)
		return false, nil
	}
	if err := remote.Classify(resp); err != nil {
		return false, err
	}
	if err := c.schemas.Validate(apischema.TokenValidation, resp.Body); err != nil {
		return false, err
	}

	var payload struct {
		Valid bool `json:"valid"`
	}
	if err := remote.DecodeJSON(resp.Body, &payload); err != nil {
		return false, err
	}
	return payload.Valid, nil
}

func (c *Client) Current() *session.Session {
	return c.store.Current()
}

func (c *Client) publish(ctx context.Context, ev events.Event) {
	if c.events == nil {
		return
	}
	if err := c.events.PublishSync(context.WithoutCancel(ctx), ev); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("session event handler failed", "event_type", ev.EventType(), "error", err)
	}
}
