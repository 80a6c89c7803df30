package handler

import (
	"net/http"

	"github.com/speedystriders/tracker/internal/ctxkeys"
	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/selection"
	"github.com/speedystriders/tracker/internal/service"
	"github.com/speedystriders/tracker/internal/session"
)

type SelectionHandler struct {
	racerService *service.RacerService
	sessions     *session.Manager
	attempts     Limiter
}

func NewSelectionHandler(racerService *service.RacerService, sessions *session.Manager, attempts Limiter) *SelectionHandler {
	return &SelectionHandler{
		racerService: racerService,
		sessions:     sessions,
		attempts:     attempts,
	}
}

type selectionResponse struct {
	Status  selection.Status `json:"status"`
	RacerID string           `json:"racerId,omitempty"`
	Racer   *racerView       `json:"racer,omitempty"`
}

// Get reconciles the stored selection against the current racers. A vanished
// racer falls back to the last persisted one, or to nothing.
func (h *SelectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())

	racers, err := h.racerService.Racers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "load selection")
		return
	}

	current := selection.State{RacerID: s.SelectedRacerID}
	next := selection.Reconcile(current, s.PersistedRacerID, racers)
	if next != current {
		s.SelectedRacerID = next.RacerID
		if next.RacerID == "" {
			s.PersistedRacerID = ""
		}
		saveSession(w, h.sessions, s)
	}

	writeJSON(w, http.StatusOK, h.response(s, next, racers))
}

// Put selects a racer. Gated racers need their password unless this session
// already unlocked them; a failed check leaves the selection unchanged.
func (h *SelectionHandler) Put(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())

	var body struct {
		RacerID  string `json:"racerId"`
		Password string `json:"password"`
	}
	err := decodeJSON(w, r, &body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	if body.Password != "" && h.attempts != nil && !h.attempts.AllowRequest(r) {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many attempts. Please try again later.")
		return
	}

	racers, err := h.racerService.Racers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "load selection")
		return
	}

	var racer *model.Racer
	for _, candidate := range racers {
		if candidate.ID == body.RacerID {
			racer = candidate
			break
		}
	}

	unlocked := s.Admin || (racer != nil && s.IsUnlocked(racer.ID))
	current := selection.State{RacerID: s.SelectedRacerID}
	next, err := selection.Select(current, racer, body.Password, unlocked, h.racerService.Gate().CheckRacer)
	if err != nil {
		writeServiceError(w, r, err, "select racer")
		return
	}

	s.Select(next.RacerID)
	if racer.Gated() {
		s.Unlock(racer.ID)
	}
	saveSession(w, h.sessions, s)

	writeJSON(w, http.StatusOK, h.response(s, next, racers))
}

func (h *SelectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())

	s.SelectedRacerID = ""
	s.PersistedRacerID = ""
	saveSession(w, h.sessions, s)

	writeJSON(w, http.StatusOK, selectionResponse{Status: selection.StatusNone})
}

func (h *SelectionHandler) response(s *session.Session, state selection.State, racers []*model.Racer) selectionResponse {
	resp := selectionResponse{Status: state.Status(racers), RacerID: state.RacerID}
	for _, racer := range racers {
		if racer.ID == state.RacerID {
			view := viewRacer(s, racer)
			resp.Racer = &view
			break
		}
	}
	return resp
}
