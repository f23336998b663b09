// Package guard decides which dashboard screens the current session may
// open, and turns denials into redirects.
package guard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/obs"
	"github.com/frahmantamala/asubt-console/internal/session"
	"github.com/frahmantamala/asubt-console/internal/transport"
)

const (
	TitleDenied        = "Доступ запрещен"
	MsgNoAdminRole     = "У вас нет прав администратора"
	MsgNoSuperAdmin    = "У вас нет прав главного администратора"
	reasonNoSession    = "unauthenticated"
	reasonInsufficient = "insufficient_role"
)

type Outcome string

const (
	Allow           Outcome = "allow"
	RedirectLogin   Outcome = "redirect_login"
	RedirectDefault Outcome = "redirect_default"
	NotFound        Outcome = "not_found"
)

// Decision is the result of a navigation attempt. Location is set for
// redirects. The attempted path is not kept for after login.
type Decision struct {
	Outcome  Outcome `json:"outcome"`
	Route    Route   `json:"route"`
	Location string  `json:"location,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Err maps a refused decision onto the error taxonomy.
func (d Decision) Err() error {
	switch d.Outcome {
	case RedirectLogin:
		return internal.ErrNoSession
	case RedirectDefault:
		return internal.NewForbiddenError(deniedMessage(d.Route.Access), internal.ErrCodeInsufficientRole)
	case NotFound:
		return internal.ErrRouteNotFound
	}
	return nil
}

// Decide is the pure routing rule: unknown paths are not found, gated
// paths without a session go to the login screen, and a role that is too
// low goes to the default screen.
func Decide(path string, s *session.Session) Decision {
	route, ok := Lookup(path)
	if !ok {
		return Decision{Outcome: NotFound, Route: Route{Path: Clean(path)}}
	}
	if route.Access.permits(s) {
		return Decision{Outcome: Allow, Route: route}
	}
	if !s.IsAuthenticated() {
		return Decision{Outcome: RedirectLogin, Route: route, Location: LoginPath, Reason: reasonNoSession}
	}
	return Decision{Outcome: RedirectDefault, Route: route, Location: DefaultPath, Reason: reasonInsufficient}
}

func deniedMessage(a Access) string {
	if a == SuperAdmin {
		return MsgNoSuperAdmin
	}
	return MsgNoAdminRole
}

type SessionReader interface {
	Current() *session.Session
}

type Notifier interface {
	Error(ctx context.Context, screen, title string, err error)
}

// Guard applies Decide to the live session.
type Guard struct {
	*transport.BaseHandler
	sessions SessionReader
	notifier Notifier
	metrics  *obs.Metrics
}

func New(sessions SessionReader, notifier Notifier, metrics *obs.Metrics, logger *slog.Logger) *Guard {
	return &Guard{
		BaseHandler: transport.NewBaseHandler(logger),
		sessions:    sessions,
		notifier:    notifier,
		metrics:     metrics,
	}
}

// Navigate decides a navigation to path. A role denial emits one
// notification per attempt.
func (g *Guard) Navigate(ctx context.Context, path string) Decision {
	d := Decide(path, g.sessions.Current())

	switch d.Outcome {
	case RedirectLogin:
		g.metrics.GuardDenied(d.Route.Path, d.Reason)
		g.Logger.Debug("navigation needs a session", "path", d.Route.Path)
	case RedirectDefault:
		g.metrics.GuardDenied(d.Route.Path, d.Reason)
		g.Logger.Info("navigation denied", "path", d.Route.Path, "required", d.Route.Access.String())
		g.notifier.Error(ctx, d.Route.Path, TitleDenied, d.Err())
	}
	return d
}

type deniedView struct {
	Error    string   `json:"error"`
	Decision Decision `json:"decision"`
}

// Require gates a shell handler behind the route at path.
func (g *Guard) Require(path string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Navigate(r.Context(), path)
			if d.Allowed() {
				next.ServeHTTP(w, r)
				return
			}
			g.refuse(w, d)
		})
	}
}

// Screen answers a navigation to the request path with the route it
// resolved to, or the redirect.
func (g *Guard) Screen(w http.ResponseWriter, r *http.Request) {
	d := g.Navigate(r.Context(), r.URL.Path)
	if !d.Allowed() {
		g.refuse(w, d)
		return
	}
	g.WriteJSON(w, http.StatusOK, d)
}

func (g *Guard) refuse(w http.ResponseWriter, d Decision) {
	status := http.StatusNotFound
	switch d.Outcome {
	case RedirectLogin:
		status = http.StatusUnauthorized
	case RedirectDefault:
		status = http.StatusForbidden
	}
	if d.Location != "" {
		w.Header().Set("Location", d.Location)
	}
	g.WriteJSON(w, status, deniedView{Error: internal.UserMessage(d.Err()), Decision: d})
}
