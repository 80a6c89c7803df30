package routes

import (
	"net/http"
	"strings"

	"github.com/speedystriders/tracker/internal/app"
	"github.com/speedystriders/tracker/internal/config"
	"github.com/speedystriders/tracker/internal/handler"
	"github.com/speedystriders/tracker/internal/middleware"
	"github.com/speedystriders/tracker/internal/ui"
)

func SetupRoutes(app *app.App) http.Handler {
	loc := app.Cfg.Location()

	// Handlers
	pages := handler.NewPageHandler()
	health := handler.NewHealthHandler(app.DB)
	racers := handler.NewRacerHandler(app.RacerService, app.AvatarService, app.Sessions)
	records := handler.NewRecordHandler(app.RecordService, app.RacerService, loc)
	training := handler.NewTrainingHandler(app.TrainingService, app.RacerService, loc)
	analytics := handler.NewAnalyticsHandler(app.RecordService, app.RacerService)
	timer := handler.NewTimerHandler(app.TimerService, app.RacerService, loc)
	stream := handler.NewStreamHandler(app.RacerService, app.RecordService, app.TrainingService)
	preferences := handler.NewPreferencesHandler()
	admin := handler.NewAdminHandler(app.AdminService, app.Sessions, loc)

	// Password attempts (racer unlock, course open, admin login) share one limiter
	gateLimiter := middleware.RateLimitGate(app.Cfg.GateAttemptsPerMinute)
	courses := handler.NewCourseHandler(app.CourseService, gateLimiter)
	sel := handler.NewSelectionHandler(app.RacerService, app.Sessions, gateLimiter)

	mux := http.NewServeMux()

	// ============================================================================
	// SYSTEM
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Check)
	mux.HandleFunc("GET /avatars/{key...}", racers.Avatar)

	// ============================================================================
	// API
	// ============================================================================

	// Racers
	mux.HandleFunc("GET /api/racers", racers.List)
	mux.HandleFunc("POST /api/racers", racers.Create)
	mux.HandleFunc("PUT /api/racers/{id}", racers.Update)
	mux.HandleFunc("DELETE /api/racers/{id}", racers.Delete)
	mux.HandleFunc("POST /api/racers/{id}/avatar", racers.UploadAvatar)
	mux.HandleFunc("POST /api/racers/{id}/unlock", gateLimiter.Func(racers.Unlock))

	// Selection
	mux.HandleFunc("GET /api/selection", sel.Get)
	mux.HandleFunc("PUT /api/selection", sel.Put)
	mux.HandleFunc("DELETE /api/selection", sel.Delete)

	// Records
	mux.HandleFunc("GET /api/records", records.List)
	mux.HandleFunc("POST /api/records", records.Create)
	mux.HandleFunc("DELETE /api/records/{id}", records.Delete)
	mux.HandleFunc("GET /api/history", records.History)

	// Training
	mux.HandleFunc("GET /api/training", training.List)
	mux.HandleFunc("POST /api/training", training.Create)
	mux.HandleFunc("DELETE /api/training/{id}", training.Delete)

	// Analytics
	mux.HandleFunc("GET /api/analytics", analytics.Show)

	// Stopwatch
	mux.HandleFunc("GET /api/timer", timer.Status)
	mux.HandleFunc("POST /api/timer/start", timer.Start)
	mux.HandleFunc("POST /api/timer/stop", timer.Stop)
	mux.HandleFunc("POST /api/timer/reset", timer.Reset)
	mux.HandleFunc("GET /api/timer/stream", timer.Stream)

	// Live snapshots
	mux.HandleFunc("GET /api/stream/{collection}", stream.Stream)

	// Courses
	mux.HandleFunc("GET /api/courses", courses.List)
	mux.HandleFunc("GET /api/courses/{id}", courses.Show)

	// Preferences
	mux.HandleFunc("GET /api/preferences", preferences.Get)
	mux.HandleFunc("PUT /api/preferences", preferences.Put)
	mux.HandleFunc("GET /api/themes", preferences.Themes)
	mux.HandleFunc("POST /api/time-input", preferences.TimeInput)

	// ============================================================================
	// ADMIN API
	// ============================================================================

	mux.HandleFunc("POST /admin/api/login", gateLimiter.Func(admin.Login))
	mux.HandleFunc("POST /admin/api/logout", admin.Logout)
	mux.HandleFunc("GET /admin/api/racers", handler.RequireAdmin(admin.Racers))
	mux.HandleFunc("POST /admin/api/racers", handler.RequireAdmin(admin.CreateRacer))
	mux.HandleFunc("POST /admin/api/import", handler.RequireAdmin(admin.Import))

	// ============================================================================
	// PAGES
	// ============================================================================

	// /admin/* renders the admin shell, everything else the app shell
	mux.HandleFunc("/", pages.App)

	apiLimiter := middleware.RateLimitAPI(app.Cfg.RateLimitPerMinute)

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.Recover,
		middleware.Config(app.Cfg), // Config must come before SecurityHeaders (S3 endpoint) and CSRF (cookie flags)
		middleware.NonceMiddleware,
		middleware.SecurityHeaders,
		middleware.RequestLogging,
		apiOnly(apiLimiter.Handler),
		middleware.CSRFProtection,
		middleware.Sessions(app.Sessions),
		middleware.Preferences,
		middleware.WithURLPath,
	)
}

// apiOnly applies mw to /api/ and /admin/api/ requests only.
func apiOnly(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isAPI(r.URL.Path) {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isAPI(path string) bool {
	return strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/admin/api/")
}

// Unavailable serves the 503 page for every request when the app could not
// start. Reloading the page retries the request against the same process.
func Unavailable(cfg *config.Config) http.Handler {
	page := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAPI(r.URL.Path) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"service_unavailable","message":"Service unavailable","code":503}`))
			return
		}
		w.Header().Set("Retry-After", "30")
		ui.RenderStatus(w, r, http.StatusServiceUnavailable, ui.ServiceUnavailable())
	})

	return middleware.Chain(
		page,
		middleware.Recover,
		middleware.Config(cfg),
		middleware.NonceMiddleware,
		middleware.SecurityHeaders,
		middleware.RequestLogging,
		middleware.Preferences,
	)
}
