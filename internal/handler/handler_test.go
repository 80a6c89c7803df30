package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/speedystriders/tracker/internal/ctxkeys"
	"github.com/speedystriders/tracker/internal/docstore"
	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/repository"
	"github.com/speedystriders/tracker/internal/selection"
	"github.com/speedystriders/tracker/internal/service"
	"github.com/speedystriders/tracker/internal/session"
)

type testEnv struct {
	racers   *service.RacerService
	records  *service.RecordService
	training *service.TrainingService
	timer    *service.TimerService
	admin    *service.AdminService
	sessions *session.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend, err := docstore.OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	store := docstore.New(backend, docstore.NewLocalNotifier())
	t.Cleanup(func() { store.Close() })

	racerRepo := repository.NewRacerRepository(store)
	env := &testEnv{sessions: session.NewManager("test-secret", false)}
	env.records = service.NewRecordService(repository.NewRecordRepository(store), racerRepo, time.UTC)
	env.training = service.NewTrainingService(repository.NewTrainingRepository(store), racerRepo, time.UTC)
	env.racers = service.NewRacerService(racerRepo, service.NewGate("ted"), func(ctx context.Context, racer *model.Racer) error {
		err := env.records.DeleteByRacer(ctx, racer.ID)
		if err != nil {
			return err
		}
		return env.training.DeleteByRacer(ctx, racer.ID)
	})
	env.timer = service.NewTimerService(env.records, env.training)
	env.admin = service.NewAdminService("ted", env.racers, env.records)
	return env
}

func (e *testEnv) addRacer(t *testing.T, in service.RacerInput) *model.Racer {
	t.Helper()
	racer, err := e.racers.Add(context.Background(), in)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	return racer
}

// serve runs h with s in the request context. pathValues fill {name} segments.
func serve(t *testing.T, h http.HandlerFunc, method, target string, body any, s *session.Session, pathValues ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		err := json.NewEncoder(&buf).Encode(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	req = req.WithContext(ctxkeys.WithSession(req.Context(), s))

	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	err := json.Unmarshal(rec.Body.Bytes(), &v)
	if err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestRacerCreateAndList(t *testing.T) {
	env := newTestEnv(t)
	h := NewRacerHandler(env.racers, service.NewAvatarService(nil, env.racers), env.sessions)

	env.addRacer(t, service.RacerInput{Name: "Public", IsPublic: true})

	owner := session.New()
	rec := serve(t, h.Create, http.MethodPost, "/api/racers", service.RacerInput{Name: "Mine"}, owner)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[racerView](t, rec)
	if !created.Owned || !owner.Owns(created.ID) {
		t.Errorf("created racer not owned by session: %+v", created)
	}
	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("Create did not save the session")
	}

	names := func(s *session.Session) []string {
		rec := serve(t, h.List, http.MethodGet, "/api/racers", nil, s)
		if rec.Code != http.StatusOK {
			t.Fatalf("List status = %d", rec.Code)
		}
		var out []string
		for _, r := range decodeBody[[]racerView](t, rec) {
			out = append(out, r.Name)
		}
		return out
	}

	byName := cmpopts.SortSlices(func(a, b string) bool { return a < b })
	if diff := cmp.Diff([]string{"Mine", "Public"}, names(owner), byName); diff != "" {
		t.Errorf("owner List mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Mine", "Public"}, names(session.New()), byName); diff != "" {
		t.Errorf("stranger List mismatch (-want +got):\n%s", diff)
	}
}

func TestRacerPasswordNeverReturned(t *testing.T) {
	env := newTestEnv(t)
	h := NewRacerHandler(env.racers, service.NewAvatarService(nil, env.racers), env.sessions)

	rec := serve(t, h.Create, http.MethodPost, "/api/racers", service.RacerInput{
		Name: "Mia", RequirePassword: true, Password: "1234",
	}, session.New())
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, body %s", rec.Code, rec.Body.String())
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("password\"")) {
		t.Errorf("response leaks password: %s", rec.Body.String())
	}
}

func TestGatedRacerWrites(t *testing.T) {
	env := newTestEnv(t)
	h := NewRacerHandler(env.racers, service.NewAvatarService(nil, env.racers), env.sessions)
	racer := env.addRacer(t, service.RacerInput{Name: "Mia", RequirePassword: true, Password: "1234", IsPublic: true})

	s := session.New()
	update := service.RacerInput{Name: "Mia L", AvatarColor: model.DefaultAvatarColor, RequirePassword: true, IsPublic: true}

	rec := serve(t, h.Update, http.MethodPut, "/api/racers/"+racer.ID, update, s, "id", racer.ID)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("locked Update status = %d, want 403", rec.Code)
	}

	rec = serve(t, h.Unlock, http.MethodPost, "/", map[string]string{"password": "0000"}, s, "id", racer.ID)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong Unlock status = %d, want 401", rec.Code)
	}
	rec = serve(t, h.Unlock, http.MethodPost, "/", map[string]string{"password": "12"}, s, "id", racer.ID)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed Unlock status = %d, want 422", rec.Code)
	}

	rec = serve(t, h.Unlock, http.MethodPost, "/", map[string]string{"password": "1234"}, s, "id", racer.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("Unlock status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = serve(t, h.Update, http.MethodPut, "/api/racers/"+racer.ID, update, s, "id", racer.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("unlocked Update status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[racerView](t, rec).Name; got != "Mia L" {
		t.Errorf("Update name = %q", got)
	}
}

func TestRacerDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	h := NewRacerHandler(env.racers, service.NewAvatarService(nil, env.racers), env.sessions)
	ctx := context.Background()

	racer := env.addRacer(t, service.RacerInput{Name: "Mia"})
	_, err := env.records.Add(ctx, service.RecordInput{RacerID: racer.ID, Distance: model.Distance10, TimeSeconds: 3.2})
	if err != nil {
		t.Fatalf("records.Add() error = %v", err)
	}

	s := session.New()
	s.AddOwned(racer.ID)
	s.Select(racer.ID)

	rec := serve(t, h.Delete, http.MethodDelete, "/", nil, s, "id", racer.ID)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	if s.Owns(racer.ID) || s.SelectedRacerID != "" {
		t.Errorf("session still references deleted racer: %+v", s)
	}

	records, err := env.records.Records(ctx)
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records after delete = %d, want 0", len(records))
	}

	rec = serve(t, h.Delete, http.MethodDelete, "/", nil, s, "id", racer.ID)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second Delete status = %d, want 404", rec.Code)
	}
}

func TestAvatarUploadDisabled(t *testing.T) {
	env := newTestEnv(t)
	h := NewRacerHandler(env.racers, service.NewAvatarService(nil, env.racers), env.sessions)
	racer := env.addRacer(t, service.RacerInput{Name: "Mia"})

	rec := serve(t, h.UploadAvatar, http.MethodPost, "/", nil, session.New(), "id", racer.ID)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("UploadAvatar status = %d, want 501", rec.Code)
	}
}

func TestSelection(t *testing.T) {
	env := newTestEnv(t)
	h := NewSelectionHandler(env.racers, env.sessions, nil)

	open := env.addRacer(t, service.RacerInput{Name: "Open", IsPublic: true})
	gated := env.addRacer(t, service.RacerInput{Name: "Gated", RequirePassword: true, Password: "1234", IsPublic: true})
	s := session.New()

	type body struct {
		RacerID  string `json:"racerId"`
		Password string `json:"password,omitempty"`
	}

	rec := serve(t, h.Put, http.MethodPut, "/api/selection", body{RacerID: open.ID}, s)
	if rec.Code != http.StatusOK {
		t.Fatalf("Put open status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[selectionResponse](t, rec).Status; got != selection.StatusSelected {
		t.Errorf("status = %q, want selected", got)
	}

	rec = serve(t, h.Put, http.MethodPut, "/api/selection", body{RacerID: gated.ID, Password: "9999"}, s)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Put wrong password status = %d, want 401", rec.Code)
	}
	if s.SelectedRacerID != open.ID {
		t.Errorf("failed gate changed selection to %q", s.SelectedRacerID)
	}

	rec = serve(t, h.Put, http.MethodPut, "/api/selection", body{RacerID: gated.ID, Password: "ted"}, s)
	if rec.Code != http.StatusOK {
		t.Fatalf("Put override status = %d, body %s", rec.Code, rec.Body.String())
	}
	if s.SelectedRacerID != gated.ID || !s.IsUnlocked(gated.ID) {
		t.Errorf("override did not select and unlock: %+v", s)
	}

	rec = serve(t, h.Put, http.MethodPut, "/api/selection", body{RacerID: "missing"}, s)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Put missing status = %d, want 404", rec.Code)
	}
}

func TestSelectPrivateRacerFromOtherSession(t *testing.T) {
	env := newTestEnv(t)
	selections := NewSelectionHandler(env.racers, env.sessions, nil)
	records := NewRecordHandler(env.records, env.racers, time.UTC)

	private := env.addRacer(t, service.RacerInput{Name: "Private"})
	other := session.New()

	rec := serve(t, selections.Put, http.MethodPut, "/api/selection", map[string]string{"racerId": private.ID}, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("Put status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[selectionResponse](t, rec)
	if got.Status != selection.StatusSelected || got.Racer == nil || got.Racer.Owned {
		t.Errorf("Put = %+v, want selected and not owned", got)
	}

	rec = serve(t, records.Create, http.MethodPost, "/api/records", createRecordRequest{
		Distance: model.Distance30,
		Time:     "7.23",
	}, other)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = serve(t, records.List, http.MethodGet, "/api/records", nil, other)
	if n := len(decodeBody[[]model.Record](t, rec)); n != 0 {
		t.Errorf("other session sees %d records of a private racer, want 0", n)
	}
}

func TestSelectionReconcilesStaleRacer(t *testing.T) {
	env := newTestEnv(t)
	h := NewSelectionHandler(env.racers, env.sessions, nil)
	keep := env.addRacer(t, service.RacerInput{Name: "Keep", IsPublic: true})

	s := session.New()
	s.Select(keep.ID)
	s.SelectedRacerID = "gone"

	rec := serve(t, h.Get, http.MethodGet, "/api/selection", nil, s)
	if rec.Code != http.StatusOK {
		t.Fatalf("Get status = %d", rec.Code)
	}
	got := decodeBody[selectionResponse](t, rec)
	if got.RacerID != keep.ID || got.Status != selection.StatusSelected {
		t.Errorf("Get = %+v, want restored %s", got, keep.ID)
	}
}

func TestRecordCreate(t *testing.T) {
	env := newTestEnv(t)
	h := NewRecordHandler(env.records, env.racers, time.UTC)
	racer := env.addRacer(t, service.RacerInput{Name: "Mia", IsPublic: true})

	s := session.New()
	s.Select(racer.ID)

	rec := serve(t, h.Create, http.MethodPost, "/api/records", createRecordRequest{
		Distance:     model.Distance30,
		Time:         "6.5",
		TenMeterTime: "2.25",
	}, s)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d, body %s", rec.Code, rec.Body.String())
	}

	created := decodeBody[[]model.Record](t, rec)
	var got []float64
	for _, r := range created {
		got = append(got, r.TimeSeconds)
		if r.RacerID != racer.ID {
			t.Errorf("record racer = %q, want selected %q", r.RacerID, racer.ID)
		}
	}
	if diff := cmp.Diff([]float64{6.5, 2.25}, got); diff != "" {
		t.Errorf("created times mismatch (-want +got):\n%s", diff)
	}
	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("last time was not remembered")
	}
}

func TestRecordCreateRejects(t *testing.T) {
	env := newTestEnv(t)
	h := NewRecordHandler(env.records, env.racers, time.UTC)
	racer := env.addRacer(t, service.RacerInput{Name: "Mia", IsPublic: true})
	gated := env.addRacer(t, service.RacerInput{Name: "Gated", RequirePassword: true, Password: "1234", IsPublic: true})

	tests := []struct {
		name string
		body createRecordRequest
		want int
	}{
		{"empty time", createRecordRequest{RacerID: racer.ID, Distance: model.Distance10}, http.StatusBadRequest},
		{"zero time", createRecordRequest{RacerID: racer.ID, Distance: model.Distance10, Time: "0"}, http.StatusBadRequest},
		{"bad distance", createRecordRequest{RacerID: racer.ID, Distance: 20, Time: "3"}, http.StatusBadRequest},
		{"no racer", createRecordRequest{Distance: model.Distance10, Time: "3"}, http.StatusNotFound},
		{"locked racer", createRecordRequest{RacerID: gated.ID, Distance: model.Distance10, Time: "3"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h.Create, http.MethodPost, "/api/records", tt.body, session.New())
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d, body %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRecordListHidesPrivate(t *testing.T) {
	env := newTestEnv(t)
	h := NewRecordHandler(env.records, env.racers, time.UTC)
	ctx := context.Background()

	public := env.addRacer(t, service.RacerInput{Name: "Public", IsPublic: true})
	private := env.addRacer(t, service.RacerInput{Name: "Private"})
	for _, id := range []string{public.ID, private.ID} {
		_, err := env.records.Add(ctx, service.RecordInput{RacerID: id, Distance: model.Distance10, TimeSeconds: 3})
		if err != nil {
			t.Fatalf("records.Add() error = %v", err)
		}
	}

	rec := serve(t, h.List, http.MethodGet, "/api/records", nil, session.New())
	if rec.Code != http.StatusOK {
		t.Fatalf("List status = %d", rec.Code)
	}
	records := decodeBody[[]model.Record](t, rec)
	if len(records) != 1 || records[0].RacerID != public.ID {
		t.Errorf("stranger sees %+v, want only the public racer", records)
	}

	admin := session.New()
	admin.Admin = true
	rec = serve(t, h.List, http.MethodGet, "/api/records", nil, admin)
	if got := len(decodeBody[[]model.Record](t, rec)); got != 2 {
		t.Errorf("admin sees %d records, want 2", got)
	}
}

func TestTimerStop(t *testing.T) {
	env := newTestEnv(t)
	h := NewTimerHandler(env.timer, env.racers, time.UTC)
	s := session.New()

	rec := serve(t, h.Start, http.MethodPost, "/api/timer/start", nil, s)
	if rec.Code != http.StatusOK {
		t.Fatalf("Start status = %d", rec.Code)
	}

	rec = serve(t, h.Stop, http.MethodPost, "/api/timer/stop", map[string]string{"autosave": "100"}, s)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Stop bad autosave status = %d, want 400", rec.Code)
	}

	rec = serve(t, h.Stop, http.MethodPost, "/api/timer/stop", nil, s)
	if rec.Code != http.StatusOK {
		t.Fatalf("Stop status = %d, body %s", rec.Code, rec.Body.String())
	}
	result := decodeBody[service.StopResult](t, rec)
	if len(result.Records) != 0 || result.Session != nil {
		t.Errorf("Stop without autosave saved %+v", result)
	}
}

func TestAdminLogin(t *testing.T) {
	env := newTestEnv(t)
	h := NewAdminHandler(env.admin, env.sessions, time.UTC)
	s := session.New()

	rec := serve(t, RequireAdmin(h.Racers), http.MethodGet, "/admin/api/racers", nil, s)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Racers before login status = %d, want 401", rec.Code)
	}

	rec = serve(t, h.Login, http.MethodPost, "/admin/api/login", map[string]string{"password": "nope"}, s)
	if rec.Code != http.StatusUnauthorized || s.Admin {
		t.Fatalf("wrong Login status = %d, admin = %v", rec.Code, s.Admin)
	}

	rec = serve(t, h.Login, http.MethodPost, "/admin/api/login", map[string]string{"password": "TED"}, s)
	if rec.Code != http.StatusOK || !s.Admin {
		t.Fatalf("Login status = %d, admin = %v", rec.Code, s.Admin)
	}

	env.addRacer(t, service.RacerInput{Name: "Private"})
	rec = serve(t, RequireAdmin(h.Racers), http.MethodGet, "/admin/api/racers", nil, s)
	if rec.Code != http.StatusOK {
		t.Fatalf("Racers status = %d", rec.Code)
	}
	if got := len(decodeBody[[]racerView](t, rec)); got != 1 {
		t.Errorf("admin racers = %d, want 1", got)
	}

	rec = serve(t, h.Logout, http.MethodPost, "/admin/api/logout", nil, s)
	if rec.Code != http.StatusNoContent || s.Admin {
		t.Errorf("Logout status = %d, admin = %v", rec.Code, s.Admin)
	}
}

func TestAnalyticsShow(t *testing.T) {
	env := newTestEnv(t)
	h := NewAnalyticsHandler(env.records, env.racers)
	ctx := context.Background()

	public := env.addRacer(t, service.RacerInput{Name: "Public", IsPublic: true})
	private := env.addRacer(t, service.RacerInput{Name: "Private"})
	for _, id := range []string{public.ID, private.ID} {
		for _, secs := range []float64{6.4, 6.0} {
			_, err := env.records.Add(ctx, service.RecordInput{RacerID: id, Distance: model.Distance30, TimeSeconds: secs})
			if err != nil {
				t.Fatalf("records.Add() error = %v", err)
			}
		}
	}

	rec := serve(t, h.Show, http.MethodGet, "/api/analytics?racerId="+public.ID, nil, session.New())
	if rec.Code != http.StatusOK {
		t.Fatalf("Show status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[analyticsResponse](t, rec)
	if got.Distance != model.Distance30 || got.Chart.Count != 2 || got.Chart.Best != 6.0 {
		t.Errorf("Show = %+v, want two 30m points with best 6.0", got)
	}

	rec = serve(t, h.Show, http.MethodGet, "/api/analytics?racerId="+private.ID, nil, session.New())
	if rec.Code != http.StatusOK {
		t.Fatalf("private racer status = %d, want 200", rec.Code)
	}
	if got := decodeBody[analyticsResponse](t, rec); got.Chart.Count != 0 {
		t.Errorf("private racer chart count = %d, want 0 for a stranger", got.Chart.Count)
	}

	rec = serve(t, h.Show, http.MethodGet, "/api/analytics?racerId=missing", nil, session.New())
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown racer status = %d, want 404", rec.Code)
	}

	rec = serve(t, h.Show, http.MethodGet, "/api/analytics?racerId="+public.ID+"&distance=20", nil, session.New())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad distance status = %d, want 400", rec.Code)
	}
}

func TestPreferencesPut(t *testing.T) {
	h := NewPreferencesHandler()

	rec := serve(t, h.Put, http.MethodPut, "/api/preferences", map[string]string{"theme": "neon"}, session.New())
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown theme status = %d, want 400", rec.Code)
	}

	rec = serve(t, h.Put, http.MethodPut, "/api/preferences", map[string]string{"theme": "dark", "lastTime": "5.2"}, session.New())
	if rec.Code != http.StatusOK {
		t.Fatalf("Put status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("preferences cookie not written")
	}
	got := decodeBody[map[string]string](t, rec)
	if diff := cmp.Diff(map[string]string{"theme": "dark", "lastTime": "5.2"}, got); diff != "" {
		t.Errorf("Put mismatch (-want +got):\n%s", diff)
	}
}

func TestTimeInput(t *testing.T) {
	h := NewPreferencesHandler()

	tests := []struct {
		current, next string
		want          string
	}{
		{"5", "5.", "5."},
		{"", ".", "0."},
		{"9.9", "9.99", "9.99"},
		{"9.99", "9.999", "9.99"},
		{"1", "11", "1"},
		{"1", "", ""},
	}
	for _, tt := range tests {
		rec := serve(t, h.TimeInput, http.MethodPost, "/api/time-input", map[string]string{"current": tt.current, "next": tt.next}, session.New())
		if rec.Code != http.StatusOK {
			t.Fatalf("TimeInput status = %d", rec.Code)
		}
		got := decodeBody[struct {
			Value string `json:"value"`
		}](t, rec)
		if got.Value != tt.want {
			t.Errorf("TimeInput(%q, %q) = %q, want %q", tt.current, tt.next, got.Value, tt.want)
		}
	}
}
