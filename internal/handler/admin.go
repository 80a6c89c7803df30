package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/speedystriders/tracker/internal/ctxkeys"
	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/service"
	"github.com/speedystriders/tracker/internal/session"
)

type AdminHandler struct {
	adminService *service.AdminService
	sessions     *session.Manager
	loc          *time.Location
}

func NewAdminHandler(adminService *service.AdminService, sessions *session.Manager, loc *time.Location) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		sessions:     sessions,
		loc:          loc,
	}
}

// RequireAdmin rejects sessions that have not passed the admin login.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := ctxkeys.Session(r.Context())
		if s == nil || !s.Admin {
			writeError(w, http.StatusUnauthorized, "admin_required", "請先登入管理後台")
			return
		}
		next(w, r)
	}
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())

	var body struct {
		Password string `json:"password"`
	}
	err := decodeJSON(w, r, &body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	err = h.adminService.Authenticate(body.Password)
	if err != nil {
		slog.Warn("admin login rejected", "session_id", s.ID)
		writeServiceError(w, r, err, "log in")
		return
	}

	s.Admin = true
	saveSession(w, h.sessions, s)
	slog.Info("admin login", "session_id", s.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"admin": true})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())
	s.Admin = false
	saveSession(w, h.sessions, s)
	w.WriteHeader(http.StatusNoContent)
}

// Racers lists every racer, private ones included.
func (h *AdminHandler) Racers(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())

	racers, err := h.adminService.Racers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "load racers")
		return
	}
	writeJSON(w, http.StatusOK, viewRacers(s, racers))
}

// CreateRacer adds a racer that joins the admin session's owned set.
func (h *AdminHandler) CreateRacer(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())

	var in service.RacerInput
	err := decodeJSON(w, r, &in)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	racer, err := h.adminService.CreateRacer(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err, "create racer")
		return
	}

	s.AddOwned(racer.ID)
	s.Unlock(racer.ID)
	saveSession(w, h.sessions, s)
	writeJSON(w, http.StatusCreated, viewRacer(s, racer))
}

// Import bulk-writes manual records for one racer and date.
func (h *AdminHandler) Import(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RacerID  string         `json:"racerId"`
		Date     string         `json:"date"`
		Distance model.Distance `json:"distance"`
		Text     string         `json:"text"`
		Timezone string         `json:"timezone"`
	}
	err := decodeJSON(w, r, &body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	result, err := h.adminService.Import(r.Context(), service.ImportInput{
		RacerID:  body.RacerID,
		Date:     body.Date,
		Distance: body.Distance,
		Text:     body.Text,
		Location: zoneOrDefault(body.Timezone, h.loc),
	})
	if err != nil {
		writeServiceError(w, r, err, "import records")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
