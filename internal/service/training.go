package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/repository"
)

const maxNoteLength = 500

type TrainingInput struct {
	RacerID         string
	Type            model.TrainingType
	DurationSeconds float64
	Note            string
	Location        *time.Location
}

type TrainingService struct {
	repo   repository.TrainingRepository
	racers repository.RacerRepository
	loc    *time.Location
	now    func() time.Time
}

func NewTrainingService(repo repository.TrainingRepository, racers repository.RacerRepository, loc *time.Location) *TrainingService {
	return &TrainingService{
		repo:   repo,
		racers: racers,
		loc:    loc,
		now:    time.Now,
	}
}

func (s *TrainingService) Sessions(ctx context.Context) ([]*model.TrainingSession, error) {
	return s.repo.Sessions(ctx)
}

func (s *TrainingService) ByID(ctx context.Context, id string) (*model.TrainingSession, error) {
	return s.repo.ByID(ctx, id)
}

func (s *TrainingService) Watch(ctx context.Context) (*repository.Feed[model.TrainingSession], error) {
	return s.repo.Watch(ctx)
}

func (s *TrainingService) Add(ctx context.Context, in TrainingInput) (*model.TrainingSession, error) {
	_, err := s.racers.ByID(ctx, in.RacerID)
	if err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, invalid("%v", model.ErrInvalidTrainingType)
	}
	if !(in.DurationSeconds > 0) || math.IsInf(in.DurationSeconds, 0) {
		return nil, invalid("duration must be greater than zero")
	}

	note := strings.TrimSpace(in.Note)
	if utf8.RuneCountInString(note) > maxNoteLength {
		return nil, invalid("note is too long (max %d characters)", maxNoteLength)
	}

	loc := in.Location
	if loc == nil {
		loc = s.loc
	}

	now := s.now()
	session := &model.TrainingSession{
		RacerID:         in.RacerID,
		Type:            in.Type,
		DurationSeconds: in.DurationSeconds,
		Note:            note,
		Timestamp:       now.UnixMilli(),
		DateStr:         model.LocalDate(now, loc),
	}

	err = s.repo.Create(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create training session: %w", err)
	}
	return session, nil
}

func (s *TrainingService) Delete(ctx context.Context, id string) error {
	_, err := s.repo.ByID(ctx, id)
	if err != nil {
		return err
	}
	err = s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete training session: %w", err)
	}
	return nil
}

func (s *TrainingService) DeleteByRacer(ctx context.Context, racerID string) error {
	n, err := s.repo.DeleteByRacer(ctx, racerID)
	if err != nil {
		return fmt.Errorf("failed to delete training sessions of racer: %w", err)
	}
	slog.Info("training sessions deleted", "racer_id", racerID, "count", n)
	return nil
}
