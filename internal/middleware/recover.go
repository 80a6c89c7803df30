package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/speedystriders/tracker/internal/ui"
)

// Recover turns panics into a 500: JSON for API paths, the error page
// otherwise. The stack is logged.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.Error("panic recovered",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			if isAPIPath(r.URL.Path) {
				writeJSONError(w, http.StatusInternalServerError, "internal_error", "Something went wrong")
				return
			}
			ui.RenderStatus(w, r, http.StatusInternalServerError, ui.ErrorPage(http.StatusInternalServerError, "Something went wrong"))
		}()

		next.ServeHTTP(w, r)
	})
}
