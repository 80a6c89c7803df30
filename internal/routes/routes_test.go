package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/speedystriders/tracker/internal/app"
	"github.com/speedystriders/tracker/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppName:               "Speedy Striders",
		AppEnv:                "test",
		ContentPath:           filepath.Join("..", "..", "content"),
		Timezone:              "UTC",
		DBDriver:              "sqlite",
		DBConnection:          filepath.Join(t.TempDir(), "striders.db"),
		StoreBackend:          config.StoreBackendSQL,
		SessionSecret:         "test-secret",
		AdminPassword:         "ted",
		RateLimitPerMinute:    1000,
		GateAttemptsPerMinute: 100,
	}
}

type client struct {
	t    *testing.T
	base string
	http *http.Client
	csrf string
}

func newClient(t *testing.T, h http.Handler) *client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New() error = %v", err)
	}
	return &client{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.base+path, r)
	if err != nil {
		c.t.Fatalf("NewRequest() error = %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("read body: %v", err)
	}
	if token := resp.Header.Get("X-CSRF-Token"); token != "" {
		c.csrf = token
	}
	return resp, data
}

func TestRoutes(t *testing.T) {
	a, err := app.New(testConfig(t))
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	c := newClient(t, SetupRoutes(a))

	resp, _ := c.do(http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /healthz = %d", resp.StatusCode)
	}
	if c.csrf == "" {
		t.Fatal("no CSRF token on safe request")
	}
	if resp.Header.Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy header")
	}

	t.Run("racer flow", func(t *testing.T) {
		resp, body := c.do(http.MethodPost, "/api/racers", map[string]any{"name": "Mia"})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("POST /api/racers = %d, body %s", resp.StatusCode, body)
		}

		resp, body = c.do(http.MethodGet, "/api/racers", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET /api/racers = %d", resp.StatusCode)
		}
		var racers []map[string]any
		err := json.Unmarshal(body, &racers)
		if err != nil {
			t.Fatalf("decode racers: %v", err)
		}
		if len(racers) != 1 || racers[0]["name"] != "Mia" {
			t.Errorf("racers = %v, want the created private racer", racers)
		}
	})

	t.Run("csrf required", func(t *testing.T) {
		token := c.csrf
		c.csrf = ""
		defer func() { c.csrf = token }()

		resp, body := c.do(http.MethodPost, "/api/racers", map[string]any{"name": "Leo"})
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("POST without token = %d, want 403", resp.StatusCode)
		}
		if !strings.Contains(string(body), "csrf_invalid") {
			t.Errorf("body = %s, want csrf_invalid", body)
		}
	})

	t.Run("unknown api path", func(t *testing.T) {
		resp, body := c.do(http.MethodGet, "/api/nope", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("GET /api/nope = %d", resp.StatusCode)
		}
		if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
			t.Errorf("Content-Type = %q, body %s", resp.Header.Get("Content-Type"), body)
		}
	})

	t.Run("pages", func(t *testing.T) {
		for _, path := range []string{"/", "/history", "/admin"} {
			resp, body := c.do(http.MethodGet, path, nil)
			if resp.StatusCode != http.StatusOK {
				t.Errorf("GET %s = %d", path, resp.StatusCode)
			}
			if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
				t.Errorf("GET %s Content-Type = %q", path, resp.Header.Get("Content-Type"))
			}
			if path == "/admin" && !strings.Contains(string(body), `id="admin-login"`) {
				t.Error("admin shell without login form for a fresh session")
			}
		}
	})

	t.Run("admin", func(t *testing.T) {
		resp, _ := c.do(http.MethodGet, "/admin/api/racers", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("GET /admin/api/racers before login = %d", resp.StatusCode)
		}

		resp, body := c.do(http.MethodPost, "/admin/api/login", map[string]string{"password": "ted"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("POST /admin/api/login = %d, body %s", resp.StatusCode, body)
		}

		resp, _ = c.do(http.MethodGet, "/admin/api/racers", nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET /admin/api/racers after login = %d", resp.StatusCode)
		}
	})

	t.Run("courses", func(t *testing.T) {
		resp, body := c.do(http.MethodGet, "/api/courses", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET /api/courses = %d, body %s", resp.StatusCode, body)
		}
	})
}

func TestUnavailable(t *testing.T) {
	c := newClient(t, Unavailable(testConfig(t)))

	resp, body := c.do(http.MethodGet, "/", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("GET / = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "<form") {
		t.Error("503 page has no reload form")
	}

	resp, body = c.do(http.MethodGet, "/api/racers", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("GET /api/racers = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "service_unavailable") {
		t.Errorf("body = %s", body)
	}
}

func TestRecoveringRetriesAfterBackoff(t *testing.T) {
	cfg := testConfig(t)
	clock := time.Unix(1000, 0)
	reachable := false
	opens := 0

	h := NewRecovering(cfg, func(cfg *config.Config) (*app.App, error) {
		opens++
		if !reachable {
			return nil, errors.New("database unreachable")
		}
		return app.New(cfg)
	})
	h.now = func() time.Time { return clock }
	t.Cleanup(func() { h.Close() })

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	err := h.Start()
	if err == nil {
		t.Fatal("Start() error = nil, want the open failure")
	}
	if rec := get("/"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET / while degraded = %d, want 503", rec.Code)
	}

	reachable = true
	if rec := get("/"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET / before backoff passed = %d, want 503", rec.Code)
	}
	if opens != 1 {
		t.Errorf("opens before backoff passed = %d, want 1", opens)
	}

	clock = clock.Add(recoverMinDelay)
	if rec := get("/"); rec.Code != http.StatusOK {
		t.Fatalf("GET / after backoff = %d, want 200", rec.Code)
	}
	if rec := get("/healthz"); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz after recovery = %d, want 200", rec.Code)
	}
	if opens != 2 {
		t.Errorf("opens = %d, want 2", opens)
	}
}

func TestRecoveringBackoffGrows(t *testing.T) {
	clock := time.Unix(1000, 0)
	h := NewRecovering(testConfig(t), func(*config.Config) (*app.App, error) {
		return nil, errors.New("database unreachable")
	})
	h.now = func() time.Time { return clock }

	var delays []time.Duration
	for range 7 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		delays = append(delays, h.delay)
		clock = clock.Add(h.delay)
	}

	want := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, recoverMaxDelay, recoverMaxDelay,
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestIsAPI(t *testing.T) {
	tests := map[string]bool{
		"/api/racers":      true,
		"/admin/api/login": true,
		"/admin":           false,
		"/apis":            false,
		"/history":         false,
		"/api":             false,
	}
	for path, want := range tests {
		if got := isAPI(path); got != want {
			t.Errorf("isAPI(%q) = %v, want %v", path, got, want)
		}
	}
}
