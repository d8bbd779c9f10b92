package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/guidebot/guidebot/cookie"
	"github.com/guidebot/guidebot/logger"
	"github.com/guidebot/guidebot/session"
)

type sessionKey struct{}

// SessionMiddleware resolves the live session record for every request and
// injects it into the request context before the route handler runs. Routes
// that do not require a session are registered outside this middleware.
//
// Resolution failures short-circuit without invoking the handler:
// no/invalid cookie and unknown sessions report 404, expired sessions report
// 401 (the record is already deleted by then and the cookie is cleared).
// Store faults are genuine errors and report 500.
func SessionMiddleware(codec *cookie.Codec, sessions *session.Manager, log *slog.Logger) func(http.Handler) http.Handler {
	log = log.With(logger.Component("session_middleware"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, ok := codec.Read(r)
			if !ok {
				writeDetail(w, http.StatusNotFound, "Session not found")
				return
			}

			record, err := sessions.Resolve(r.Context(), sessionID)
			switch {
			case err == nil:
			case errors.Is(err, session.ErrNotFound):
				writeDetail(w, http.StatusNotFound, "Session not found")
				return
			case errors.Is(err, session.ErrExpired):
				codec.Clear(w)
				writeDetail(w, http.StatusUnauthorized, "Session expired")
				return
			default:
				log.ErrorContext(r.Context(), "session resolution failed",
					logger.Error(err), logger.SessionID(sessionID))
				writeDetail(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, record)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RecordFromContext returns the session record attached by SessionMiddleware.
// Handlers read the record directly; there is no re-fetch.
func RecordFromContext(ctx context.Context) (*session.Record, bool) {
	record, ok := ctx.Value(sessionKey{}).(*session.Record)
	return record, ok
}
