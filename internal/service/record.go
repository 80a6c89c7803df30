package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/repository"
)

var importSeparator = regexp.MustCompile(`[\s,、]+`)

type RecordInput struct {
	RacerID     string
	Distance    model.Distance
	TimeSeconds float64
	// TenMeterSeconds adds a paired 10m record to a 30m or 50m entry when > 0.
	TenMeterSeconds float64
	RecordType      string
	Location        *time.Location
}

type ImportInput struct {
	RacerID  string
	Date     string // YYYY-MM-DD
	Distance model.Distance
	Text     string
	Location *time.Location
}

type ImportResult struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

type RecordService struct {
	repo   repository.RecordRepository
	racers repository.RacerRepository
	loc    *time.Location
	now    func() time.Time
}

// NewRecordService records dates in loc unless a write names its own zone.
func NewRecordService(repo repository.RecordRepository, racers repository.RacerRepository, loc *time.Location) *RecordService {
	return &RecordService{
		repo:   repo,
		racers: racers,
		loc:    loc,
		now:    time.Now,
	}
}

func (s *RecordService) Records(ctx context.Context) ([]*model.Record, error) {
	return s.repo.Records(ctx)
}

func (s *RecordService) ByID(ctx context.Context, id string) (*model.Record, error) {
	return s.repo.ByID(ctx, id)
}

func (s *RecordService) Watch(ctx context.Context) (*repository.Feed[model.Record], error) {
	return s.repo.Watch(ctx)
}

// Add writes one record, or two for a paired entry: the 10m split gets the
// main timestamp + 1 ms. dateStr is fixed here in the creator's zone.
func (s *RecordService) Add(ctx context.Context, in RecordInput) ([]*model.Record, error) {
	_, err := s.racers.ByID(ctx, in.RacerID)
	if err != nil {
		return nil, err
	}
	if !in.Distance.Valid() {
		return nil, invalid("%v", model.ErrInvalidDistance)
	}
	if !(in.TimeSeconds > 0) || math.IsInf(in.TimeSeconds, 0) {
		return nil, invalid("time must be greater than zero")
	}
	if in.TenMeterSeconds < 0 || math.IsNaN(in.TenMeterSeconds) {
		return nil, invalid("10m time must be greater than zero")
	}
	if in.TenMeterSeconds > 0 && in.Distance == model.Distance10 {
		return nil, invalid("a 10m split needs a 30m or 50m record")
	}

	recordType := in.RecordType
	if recordType == "" {
		recordType = model.RecordTypeManual
	}
	if recordType != model.RecordTypeManual && recordType != model.RecordTypeStopwatch {
		return nil, invalid("unknown record type %q", recordType)
	}

	now := s.now()
	dateStr := model.LocalDate(now, s.location(in.Location))

	main := &model.Record{
		RacerID:     in.RacerID,
		Distance:    in.Distance,
		TimeSeconds: in.TimeSeconds,
		Timestamp:   now.UnixMilli(),
		DateStr:     dateStr,
		RecordType:  recordType,
	}
	err = s.repo.Create(ctx, main)
	if err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}
	created := []*model.Record{main}

	if in.TenMeterSeconds > 0 {
		split := &model.Record{
			RacerID:     in.RacerID,
			Distance:    model.Distance10,
			TimeSeconds: in.TenMeterSeconds,
			Timestamp:   main.Timestamp + 1,
			DateStr:     dateStr,
			RecordType:  recordType,
		}
		err = s.repo.Create(ctx, split)
		if err != nil {
			return created, fmt.Errorf("failed to create 10m record: %w", err)
		}
		created = append(created, split)
	}

	return created, nil
}

func (s *RecordService) Delete(ctx context.Context, id string) error {
	_, err := s.repo.ByID(ctx, id)
	if err != nil {
		return err
	}
	err = s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (s *RecordService) DeleteByRacer(ctx context.Context, racerID string) error {
	n, err := s.repo.DeleteByRacer(ctx, racerID)
	if err != nil {
		return fmt.Errorf("failed to delete records of racer: %w", err)
	}
	slog.Info("records deleted", "racer_id", racerID, "count", n)
	return nil
}

// Import writes one manual record per time in text, sequentially. Record i
// gets the import date's midnight + i ms so the entries keep their order.
func (s *RecordService) Import(ctx context.Context, in ImportInput) (ImportResult, error) {
	var result ImportResult

	_, err := s.racers.ByID(ctx, in.RacerID)
	if err != nil {
		return result, err
	}
	if !in.Distance.Valid() {
		return result, invalid("%v", model.ErrInvalidDistance)
	}

	loc := s.location(in.Location)
	day, err := time.ParseInLocation(model.DateLayout, in.Date, loc)
	if err != nil {
		return result, invalid("date must be YYYY-MM-DD")
	}

	times := ParseImportTimes(in.Text)
	if len(times) == 0 {
		return result, invalid("no valid times found")
	}

	base := day.UnixMilli()
	for i, secs := range times {
		record := &model.Record{
			RacerID:     in.RacerID,
			Distance:    in.Distance,
			TimeSeconds: secs,
			Timestamp:   base + int64(i),
			DateStr:     in.Date,
			RecordType:  model.RecordTypeManual,
		}
		err = s.repo.Create(ctx, record)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return result, err
			}
			slog.Error("import record failed", "racer_id", in.RacerID, "index", i, "error", err)
			result.Failed++
			continue
		}
		result.Success++
	}

	slog.Info("records imported", "racer_id", in.RacerID, "date", in.Date, "success", result.Success, "failed", result.Failed)
	return result, nil
}

// ParseImportTimes splits on whitespace, commas and the ideographic comma and
// keeps positive numbers only.
func ParseImportTimes(text string) []float64 {
	var times []float64
	for _, part := range importSeparator.Split(text, -1) {
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || !(v > 0) || math.IsInf(v, 0) {
			continue
		}
		times = append(times, v)
	}
	return times
}

func (s *RecordService) location(loc *time.Location) *time.Location {
	if loc != nil {
		return loc
	}
	return s.loc
}
