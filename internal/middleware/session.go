package middleware

import (
	"log/slog"
	"net/http"

	"github.com/speedystriders/tracker/internal/ctxkeys"
	"github.com/speedystriders/tracker/internal/prefs"
	"github.com/speedystriders/tracker/internal/session"
)

// Sessions loads the browser session, starting a new one when the cookie is
// missing or invalid.
func Sessions(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := manager.Load(r)
			if !ok {
				s = session.New()
				err := manager.Save(w, s)
				if err != nil {
					slog.Error("failed to save new session", "error", err)
				}
			}

			ctx := ctxkeys.WithSession(r.Context(), s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Preferences adds the stored theme and last entered time to the context.
func Preferences(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ctxkeys.WithPreferences(r.Context(), prefs.Load(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
