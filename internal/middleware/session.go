package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Session cookie layout.
const (
	SessionName  = "cartwidget-session"
	SessionKeyID = "sid"
)

type sessionCtxKey struct{}

// Session loads the browsing session, assigns it an id on first sight and
// puts it on the request context. A cookie that fails to decode is replaced.
func Session(store sessions.Store, log Log) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// On a decode error the store still hands back a fresh session.
			session, err := store.Get(r, SessionName)
			if err != nil {
				log.Debug("Discarding unreadable session cookie", zap.Error(err))
			}
			if session == nil {
				http.Error(w, "Failed to start session", http.StatusInternalServerError)
				return
			}

			if SessionID(session) == "" {
				session.Values[SessionKeyID] = uuid.NewString()
				if err := session.Save(r, w); err != nil {
					log.Info("Failed to save session", zap.Error(err))
					http.Error(w, "Failed to start session", http.StatusInternalServerError)
					return
				}
			}

			ctx := context.WithValue(r.Context(), sessionCtxKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the session put there by Session.
func SessionFromContext(ctx context.Context) (*sessions.Session, bool) {
	s, ok := ctx.Value(sessionCtxKey{}).(*sessions.Session)
	return s, ok
}

// SessionID returns the id stored in s, or "" when there is none.
func SessionID(s *sessions.Session) string {
	if s == nil {
		return ""
	}
	id, _ := s.Values[SessionKeyID].(string)
	return id
}
