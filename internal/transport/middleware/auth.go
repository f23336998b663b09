package middleware

import (
	"net/http"

	"github.com/frahmantamala/asubt-console/internal/session"
	"github.com/frahmantamala/asubt-console/pkg/logger"
)

type SessionReader interface {
	Current() *session.Session
}

// SessionContext tags the request logger with the signed-in user.
func SessionContext(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cur := sessions.Current()
			if cur == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := logger.WithUser(r.Context(), cur.Identity.ID, string(cur.Identity.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
