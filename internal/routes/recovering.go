package routes

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/speedystriders/tracker/internal/app"
	"github.com/speedystriders/tracker/internal/config"
)

const (
	recoverMinDelay = time.Second
	recoverMaxDelay = 30 * time.Second
)

var errRetryLater = errors.New("waiting before the next attempt")

// Recovering serves the unavailable page until the app opens, then every
// route of the app. Requests made while degraded retry the open once the
// backoff has passed, so a reload recovers without a restart.
type Recovering struct {
	cfg         *config.Config
	open        func(*config.Config) (*app.App, error)
	unavailable http.Handler
	now         func() time.Time

	current atomic.Pointer[http.Handler]

	mu      sync.Mutex
	app     *app.App
	delay   time.Duration
	retryAt time.Time
}

func NewRecovering(cfg *config.Config, open func(*config.Config) (*app.App, error)) *Recovering {
	return &Recovering{
		cfg:         cfg,
		open:        open,
		unavailable: Unavailable(cfg),
		now:         time.Now,
	}
}

// Start makes the first attempt and returns its error.
func (h *Recovering) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tryOpen()
}

func (h *Recovering) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if next := h.current.Load(); next != nil {
		(*next).ServeHTTP(w, r)
		return
	}

	// Requests arriving during an attempt get the unavailable page.
	if h.mu.TryLock() {
		err := h.tryOpen()
		h.mu.Unlock()
		if err == nil {
			(*h.current.Load()).ServeHTTP(w, r)
			return
		}
	}
	h.unavailable.ServeHTTP(w, r)
}

// tryOpen must be called with mu held.
func (h *Recovering) tryOpen() error {
	if h.current.Load() != nil {
		return nil
	}

	now := h.now()
	if now.Before(h.retryAt) {
		return errRetryLater
	}

	a, err := h.open(h.cfg)
	if err != nil {
		h.delay = min(max(h.delay*2, recoverMinDelay), recoverMaxDelay)
		h.retryAt = now.Add(h.delay)
		slog.Error("app unavailable", "error", err, "retry_in", h.delay)
		return err
	}

	if !h.retryAt.IsZero() {
		slog.Info("app recovered")
	}
	h.app = a
	handler := SetupRoutes(a)
	h.current.Store(&handler)
	return nil
}

// Close closes the app if it was opened.
func (h *Recovering) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.app == nil {
		return nil
	}
	return h.app.Close()
}
