package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/speedystriders/tracker/internal/analytics"
	"github.com/speedystriders/tracker/internal/ctxkeys"
	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/prefs"
	"github.com/speedystriders/tracker/internal/repository"
	"github.com/speedystriders/tracker/internal/service"
	"github.com/speedystriders/tracker/internal/session"
	"github.com/speedystriders/tracker/internal/validation"
	"github.com/speedystriders/tracker/internal/visibility"
)

type RecordHandler struct {
	recordService *service.RecordService
	racerService  *service.RacerService
	loc           *time.Location
	now           func() time.Time
}

func NewRecordHandler(recordService *service.RecordService, racerService *service.RacerService, loc *time.Location) *RecordHandler {
	return &RecordHandler{
		recordService: recordService,
		racerService:  racerService,
		loc:           loc,
		now:           time.Now,
	}
}

// visibleRecords loads records and racers and drops the records of private
// racers the session does not own. Racers themselves are never filtered.
func visibleRecords(r *http.Request, s *session.Session, racerService *service.RacerService, recordService *service.RecordService) ([]*model.Record, []*model.Racer, error) {
	racers, err := racerService.Racers(r.Context())
	if err != nil {
		return nil, nil, err
	}
	records, err := recordService.Records(r.Context())
	if err != nil {
		return nil, nil, err
	}
	return visibility.Filter(records, racers, ownedSet(s, racers)), racers, nil
}

// List returns visible records, newest first. ?racerId= narrows to one racer,
// ?date=today (or YYYY-MM-DD) to one local date, ?limit= caps the result.
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())
	q := r.URL.Query()

	records, _, err := visibleRecords(r, s, h.racerService, h.recordService)
	if err != nil {
		writeServiceError(w, r, err, "load records")
		return
	}

	if racerID := q.Get("racerId"); racerID != "" {
		records = byRacer(records, racerID)
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	switch date := q.Get("date"); date {
	case "":
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}
	case "today":
		records = analytics.OnDate(records, model.LocalDate(h.now(), h.location(r)), limit)
	default:
		records = analytics.OnDate(records, date, limit)
	}

	writeJSON(w, http.StatusOK, records)
}

// History groups visible records by local date.
func (h *RecordHandler) History(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())

	records, _, err := visibleRecords(r, s, h.racerService, h.recordService)
	if err != nil {
		writeServiceError(w, r, err, "load history")
		return
	}
	if racerID := r.URL.Query().Get("racerId"); racerID != "" {
		records = byRacer(records, racerID)
	}

	writeJSON(w, http.StatusOK, analytics.GroupByDate(records))
}

type createRecordRequest struct {
	RacerID      string         `json:"racerId"`
	Distance     model.Distance `json:"distance"`
	Time         string         `json:"time"`
	TenMeterTime string         `json:"tenMeterTime"`
	RecordType   string         `json:"recordType"`
	Timezone     string         `json:"timezone"`
}

// Create saves a quick entry. A 10m split on a 30m or 50m entry is written as
// a second record. The entered time is remembered as the last time.
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())

	var body createRecordRequest
	err := decodeJSON(w, r, &body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}
	if body.RacerID == "" {
		body.RacerID = s.SelectedRacerID
	}

	seconds, err := validation.ParseSubmittableTime(body.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
		return
	}
	var tenMeter float64
	if body.TenMeterTime != "" {
		tenMeter, err = validation.ParseSubmittableTime(body.TenMeterTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_time", "10m: "+err.Error())
			return
		}
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

	created, err := h.recordService.Add(r.Context(), service.RecordInput{
		RacerID:         racer.ID,
		Distance:        body.Distance,
		TimeSeconds:     seconds,
		TenMeterSeconds: tenMeter,
		RecordType:      body.RecordType,
		Location:        zoneOrDefault(body.Timezone, h.location(r)),
	})
	if err != nil {
		writeServiceError(w, r, err, "save record")
		return
	}

	p := ctxkeys.Preferences(r.Context())
	if validation.AcceptTimeInput("", body.Time) == body.Time {
		p.LastTime = body.Time
		err = prefs.Save(w, p, secureCookies(r))
		if err != nil {
			writeServiceError(w, r, err, "save preferences")
			return
		}
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())
	id := r.PathValue("id")

	record, err := h.recordService.ByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "load record")
		return
	}

	racer, err := h.racerService.ByID(r.Context(), record.RacerID)
	switch {
	case errors.Is(err, repository.ErrRacerNotFound):
		// orphan left by an interrupted cascade
	case err != nil:
		writeServiceError(w, r, err, "load racer")
		return
	case !canWrite(s, racer):
		writeLocked(w)
		return
	}

	err = h.recordService.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "delete record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordHandler) location(r *http.Request) *time.Location {
	return zoneOrDefault(r.Header.Get("X-Timezone"), h.loc)
}

func byRacer(records []*model.Record, racerID string) []*model.Record {
	out := make([]*model.Record, 0, len(records))
	for _, rec := range records {
		if rec.RacerID == racerID {
			out = append(out, rec)
		}
	}
	return out
}

// zoneOrDefault resolves an IANA zone name sent by the client.
func zoneOrDefault(name string, def *time.Location) *time.Location {
	if name == "" {
		return def
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return def
	}
	return loc
}

func secureCookies(r *http.Request) bool {
	cfg := ctxkeys.Config(r.Context())
	return cfg != nil && cfg.IsProduction()
}
