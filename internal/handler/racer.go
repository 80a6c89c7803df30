package handler

import (
	"log/slog"
	"net/http"

	"github.com/speedystriders/tracker/internal/ctxkeys"
	"github.com/speedystriders/tracker/internal/service"
	"github.com/speedystriders/tracker/internal/session"
)

type RacerHandler struct {
	racerService  *service.RacerService
	avatarService *service.AvatarService
	sessions      *session.Manager
}

func NewRacerHandler(racerService *service.RacerService, avatarService *service.AvatarService, sessions *session.Manager) *RacerHandler {
	return &RacerHandler{
		racerService:  racerService,
		avatarService: avatarService,
		sessions:      sessions,
	}
}

// List returns public racers and the ones this session created.
func (h *RacerHandler) List(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())

	racers, err := h.racerService.Racers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "load racers")
		return
	}

	writeJSON(w, http.StatusOK, viewRacers(s, racers))
}

func (h *RacerHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())

	var in service.RacerInput
	err := decodeJSON(w, r, &in)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	racer, err := h.racerService.Add(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err, "create racer")
		return
	}

	s.AddOwned(racer.ID)
	s.Unlock(racer.ID)
	saveSession(w, h.sessions, s)

	writeJSON(w, http.StatusCreated, viewRacer(s, racer))
}

func (h *RacerHandler) Update(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())
	id := r.PathValue("id")

	racer, err := h.racerService.ByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "load racer")
		return
	}
	if !canWrite(s, racer) {
		writeLocked(w)
		return
	}

	var in service.RacerInput
	err = decodeJSON(w, r, &in)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	updated, err := h.racerService.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err, "update racer")
		return
	}

	if in.RequirePassword && in.Password != "" {
		s.Unlock(updated.ID)
		saveSession(w, h.sessions, s)
	}
	writeJSON(w, http.StatusOK, viewRacer(s, updated))
}

// Delete removes the racer with its records and training sessions.
func (h *RacerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())
	id := r.PathValue("id")

	racer, err := h.racerService.ByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "load racer")
		return
	}
	if !canWrite(s, racer) {
		writeLocked(w)
		return
	}

	err = h.racerService.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "delete racer")
		return
	}

	s.Forget(id)
	saveSession(w, h.sessions, s)
	w.WriteHeader(http.StatusNoContent)
}

// Unlock checks the racer password and remembers the unlock for this session.
func (h *RacerHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())
	id := r.PathValue("id")

	var body struct {
		Password string `json:"password"`
	}
	err := decodeJSON(w, r, &body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	racer, err := h.racerService.Unlock(r.Context(), id, body.Password)
	if err != nil {
		writeServiceError(w, r, err, "unlock racer")
		return
	}

	s.Unlock(racer.ID)
	saveSession(w, h.sessions, s)
	writeJSON(w, http.StatusOK, viewRacer(s, racer))
}

func (h *RacerHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())
	id := r.PathValue("id")

	if !h.avatarService.Enabled() {
		writeServiceError(w, r, service.ErrAvatarStorageDisabled, "upload avatar")
		return
	}

	racer, err := h.racerService.ByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "load racer")
		return
	}
	if !canWrite(s, racer) {
		writeLocked(w)
		return
	}

	// Parse multipart form (10MB max)
	err = r.ParseMultipartForm(10 << 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "Failed to parse form")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "No file uploaded")
		return
	}
	defer func() {
		closeErr := file.Close()
		if closeErr != nil {
			slog.Error("failed to close file", "error", closeErr)
		}
	}()

	updated, err := h.avatarService.Upload(r.Context(), racer.ID, file, header)
	if err != nil {
		writeServiceError(w, r, err, "upload avatar")
		return
	}

	writeJSON(w, http.StatusOK, viewRacer(s, updated))
}

// Avatar redirects an avatar path to a short-lived storage URL.
func (h *RacerHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	url, err := h.avatarService.URL(r.Context(), "/avatars/"+r.PathValue("key"))
	if err != nil {
		writeServiceError(w, r, err, "load avatar")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
