package handler

import (
	"net/http"

	"github.com/speedystriders/tracker/internal/analytics"
	"github.com/speedystriders/tracker/internal/ctxkeys"
	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/service"
)

type AnalyticsHandler struct {
	recordService *service.RecordService
	racerService  *service.RacerService
}

func NewAnalyticsHandler(recordService *service.RecordService, racerService *service.RacerService) *AnalyticsHandler {
	return &AnalyticsHandler{
		recordService: recordService,
		racerService:  racerService,
	}
}

type analyticsResponse struct {
	RacerID  string                `json:"racerId"`
	Distance model.Distance        `json:"distance"`
	Chart    analytics.Chart       `json:"chart"`
	Monthly  []analytics.MonthStat `json:"monthly"`
	Splits   []analytics.Split     `json:"splits"`
}

// Show returns the chart, monthly trend and 30m/10m splits of one racer,
// built from the records the session may see. distance defaults to 30.
func (h *AnalyticsHandler) Show(w http.ResponseWriter, r *http.Request) {
	s := ctxkeys.Session(r.Context())
	q := r.URL.Query()

	racerID := q.Get("racerId")
	if racerID == "" {
		racerID = s.SelectedRacerID
	}

	distance := model.Distance30
	if raw := q.Get("distance"); raw != "" {
		d, err := model.ParseDistance(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
			return
		}
		distance = d
	}

	records, racers, err := visibleRecords(r, s, h.racerService, h.recordService)
	if err != nil {
		writeServiceError(w, r, err, "load analytics")
		return
	}

	found := false
	for _, racer := range racers {
		if racer.ID == racerID {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "racer_not_found", "找不到選手")
		return
	}

	writeJSON(w, http.StatusOK, analyticsResponse{
		RacerID:  racerID,
		Distance: distance,
		Chart:    analytics.BuildChart(records, racerID, distance),
		Monthly:  analytics.Monthly(records, racerID, distance),
		Splits:   analytics.Splits(records, racerID),
	})
}
