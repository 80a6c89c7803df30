package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/speedystriders/tracker/internal/ctxkeys"
	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/repository"
	"github.com/speedystriders/tracker/internal/service"
	"github.com/speedystriders/tracker/internal/visibility"
)

type TrainingHandler struct {
	trainingService *service.TrainingService
	racerService    *service.RacerService
	loc             *time.Location
}

func NewTrainingHandler(trainingService *service.TrainingService, racerService *service.RacerService, loc *time.Location) *TrainingHandler {
	return &TrainingHandler{
		trainingService: trainingService,
		racerService:    racerService,
		loc:             loc,
	}
}

func (h *TrainingHandler) List(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())

	racers, err := h.racerService.Racers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "load racers")
		return
	}
	sessions, err := h.trainingService.Sessions(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "load training sessions")
		return
	}

	visible := visibility.Filter(sessions, racers, ownedSet(s, racers))
	if racerID := r.URL.Query().Get("racerId"); racerID != "" {
		filtered := make([]*model.TrainingSession, 0, len(visible))
		for _, ts := range visible {
			if ts.RacerID == racerID {
				filtered = append(filtered, ts)
			}
		}
		visible = filtered
	}

	writeJSON(w, http.StatusOK, visible)
}

func (h *TrainingHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())

	var body struct {
		RacerID         string             `json:"racerId"`
		Type            model.TrainingType `json:"type"`
		DurationSeconds float64            `json:"durationSeconds"`
		Note            string             `json:"note"`
		Timezone        string             `json:"timezone"`
	}
	err := decodeJSON(w, r, &body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	if body.RacerID == "" {
		body.RacerID = s.SelectedRacerID
	}

	racer, err := h.racerService.ByID(r.Context(), body.RacerID)
	if err != nil {
		writeServiceError(w, r, err, "load racer")
		return
	}
	if !canWrite(s, racer) {
		writeLocked(w)
		return
	}

	session, err := h.trainingService.Add(r.Context(), service.TrainingInput{
		RacerID:         racer.ID,
		Type:            body.Type,
		DurationSeconds: body.DurationSeconds,
		Note:            body.Note,
		Location:        zoneOrDefault(body.Timezone, zoneOrDefault(r.Header.Get("X-Timezone"), h.loc)),
	})
	if err != nil {
		writeServiceError(w, r, err, "save training session")
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (h *TrainingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())
	id := r.PathValue("id")

	ts, err := h.trainingService.ByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "load training session")
		return
	}

	racer, err := h.racerService.ByID(r.Context(), ts.RacerID)
	switch {
	case errors.Is(err, repository.ErrRacerNotFound):
	case err != nil:
		writeServiceError(w, r, err, "load racer")
		return
	case !canWrite(s, racer):
		writeLocked(w)
		return
	}

	err = h.trainingService.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "delete training session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
