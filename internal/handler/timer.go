package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/speedystriders/tracker/internal/ctxkeys"
	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/service"
)

const timerStreamInterval = 50 * time.Millisecond

type TimerHandler struct {
	timerService *service.TimerService
	racerService *service.RacerService
	loc          *time.Location
}

func NewTimerHandler(timerService *service.TimerService, racerService *service.RacerService, loc *time.Location) *TimerHandler {
	return &TimerHandler{
		timerService: timerService,
		racerService: racerService,
		loc:          loc,
	}
}

func (h *TimerHandler) Status(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())
	writeJSON(w, http.StatusOK, h.timerService.Status(s.ID))
}

func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())
	writeJSON(w, http.StatusOK, h.timerService.Start(s.ID))
}

func (h *TimerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())
	writeJSON(w, http.StatusOK, h.timerService.Reset(s.ID))
}

type stopRequest struct {
	// AutoSave is a distance ("10", "30", "50") or a training type; empty
	// only stops the stopwatch.
	AutoSave string `json:"autosave"`
	RacerID  string `json:"racerId"`
	Note     string `json:"note"`
	Timezone string `json:"timezone"`
}

// Stop freezes the stopwatch and optionally saves the time for the selected
// racer. On a failed save the frozen time stays so the user can retry.
func (h *TimerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())

	var body stopRequest
	err := decodeJSON(w, r, &body)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	var auto *service.AutoSave
	if body.AutoSave != "" {
		auto = &service.AutoSave{
			RacerID:  body.RacerID,
			Note:     body.Note,
			Location: zoneOrDefault(body.Timezone, zoneOrDefault(r.Header.Get("X-Timezone"), h.loc)),
		}
		if auto.RacerID == "" {
			auto.RacerID = s.SelectedRacerID
		}

		if d, err := model.ParseDistance(body.AutoSave); err == nil {
			auto.Distance = d
		} else if t := model.TrainingType(body.AutoSave); t.Valid() {
			auto.TrainingType = t
		} else {
			writeError(w, http.StatusBadRequest, "invalid_input", "autosave must be a distance or a training type")
			return
		}

		racer, err := h.racerService.ByID(r.Context(), auto.RacerID)
		if err != nil {
			writeServiceError(w, r, err, "load racer")
			return
		}
		if !canWrite(s, racer) {
			writeLocked(w)
			return
		}
	}

	result, err := h.timerService.Stop(r.Context(), s.ID, auto)
	if err != nil {
		writeServiceError(w, r, err, "save stopwatch time")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Stream pushes the elapsed time for live display until the client leaves.
func (h *TimerHandler) Stream(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())

	sse, err := newSSE(w)
	if err != nil {
		slog.Error("failed to start timer stream", "error", err)
		return
	}

	for status := range h.timerService.Watch(r.Context(), s.ID, timerStreamInterval) {
		err = sse.Send("tick", status)
		if err != nil {
			return
		}
	}
}
