package session

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	m := NewManager("test-secret", false)

	s := New()
	s.AddOwned("r1")
	s.AddOwned("r1")
	s.Unlock("r2")
	s.Select("r1")
	s.Admin = true

	rec := httptest.NewRecorder()
	err := m.Save(rec, s)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName {
		t.Fatalf("cookies = %v", cookies)
	}
	if !cookies[0].HttpOnly || !cookies[0].Expires.IsZero() {
		t.Errorf("cookie must be HttpOnly without expiry: %+v", cookies[0])
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])

	got, ok := m.Load(req)
	if !ok {
		t.Fatal("Load() ok = false")
	}
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsForeignSecret(t *testing.T) {
	token, err := NewManager("one", false).Encode(New())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	_, err = NewManager("two", false).Decode(token)
	if !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Decode() error = %v, want ErrInvalidSession", err)
	}
}

func TestLoadMissingCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := NewManager("s", false).Load(req); ok {
		t.Error("Load() without cookie ok = true")
	}
}

func TestForget(t *testing.T) {
	s := New()
	s.AddOwned("r1")
	s.AddOwned("r2")
	s.Unlock("r1")
	s.Select("r1")

	s.Forget("r1")

	if s.Owns("r1") || s.IsUnlocked("r1") || s.SelectedRacerID != "" || s.PersistedRacerID != "" {
		t.Errorf("Forget() left references: %+v", s)
	}
	if !s.Owns("r2") {
		t.Error("Forget() removed another racer")
	}
}
