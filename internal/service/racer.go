package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/repository"
	"github.com/speedystriders/tracker/internal/validation"
)

// CascadeFunc removes everything that belongs to a deleted racer.
type CascadeFunc func(ctx context.Context, racer *model.Racer) error

type RacerInput struct {
	Name            string `json:"name"`
	AvatarColor     string `json:"avatarColor"`
	Avatar          string `json:"avatar"`
	Password        string `json:"password"`
	RequirePassword bool   `json:"requirePassword"`
	IsPublic        bool   `json:"isPublic"`
}

type RacerService struct {
	repo    repository.RacerRepository
	gate    *Gate
	cascade CascadeFunc
	now     func() time.Time
}

func NewRacerService(repo repository.RacerRepository, gate *Gate, cascade CascadeFunc) *RacerService {
	return &RacerService{
		repo:    repo,
		gate:    gate,
		cascade: cascade,
		now:     time.Now,
	}
}

func (s *RacerService) Racers(ctx context.Context) ([]*model.Racer, error) {
	return s.repo.Racers(ctx)
}

func (s *RacerService) ByID(ctx context.Context, id string) (*model.Racer, error) {
	return s.repo.ByID(ctx, id)
}

// Watch streams racer snapshots until ctx is done or the feed is cancelled.
func (s *RacerService) Watch(ctx context.Context) (*repository.Feed[model.Racer], error) {
	return s.repo.Watch(ctx)
}

func (s *RacerService) Add(ctx context.Context, in RacerInput) (*model.Racer, error) {
	color, err := normalizeRacerInput(&in)
	if err != nil {
		return nil, err
	}

	racer := &model.Racer{
		Name:            in.Name,
		AvatarColor:     color,
		Avatar:          in.Avatar,
		CreatedAt:       s.now().UnixMilli(),
		RequirePassword: in.RequirePassword,
		IsPublic:        in.IsPublic,
	}

	if in.RequirePassword {
		err = validation.ValidateGatePassword(in.Password)
		if err != nil {
			return nil, invalid("%v", err)
		}
		racer.Password, err = s.gate.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	err = s.repo.Create(ctx, racer)
	if err != nil {
		return nil, fmt.Errorf("failed to create racer: %w", err)
	}

	slog.Info("racer created", "racer_id", racer.ID, "public", racer.IsPublic, "gated", racer.Gated())
	return racer, nil
}

// Update overwrites the racer but keeps its id and createdAt. With the gate
// still on and no new password, the stored password is kept.
func (s *RacerService) Update(ctx context.Context, id string, in RacerInput) (*model.Racer, error) {
	existing, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	color, err := normalizeRacerInput(&in)
	if err != nil {
		return nil, err
	}

	racer := &model.Racer{
		ID:              existing.ID,
		Name:            in.Name,
		AvatarColor:     color,
		Avatar:          in.Avatar,
		CreatedAt:       existing.CreatedAt,
		RequirePassword: in.RequirePassword,
		IsPublic:        in.IsPublic,
	}

	switch {
	case !in.RequirePassword:
		// gate off: password dropped
	case in.Password != "":
		err = validation.ValidateGatePassword(in.Password)
		if err != nil {
			return nil, invalid("%v", err)
		}
		racer.Password, err = s.gate.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	case existing.Password != "":
		racer.Password = existing.Password
	default:
		return nil, invalid("%v", validation.ErrPasswordFormat)
	}

	err = s.repo.Update(ctx, racer)
	if err != nil {
		return nil, fmt.Errorf("failed to update racer: %w", err)
	}
	return racer, nil
}

// SetAvatar replaces only the avatar field.
func (s *RacerService) SetAvatar(ctx context.Context, id, avatar string) (*model.Racer, error) {
	racer, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = validation.ValidateAvatar(avatar)
	if err != nil {
		return nil, invalid("%v", err)
	}

	racer.Avatar = avatar
	err = s.repo.Update(ctx, racer)
	if err != nil {
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}
	return racer, nil
}

// Delete removes the racer first, then its records and training sessions.
// A failing cascade leaves orphans behind, which visibility filtering hides.
func (s *RacerService) Delete(ctx context.Context, id string) error {
	racer, err := s.repo.ByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.repo.Delete(ctx, racer.ID)
	if err != nil {
		return fmt.Errorf("failed to delete racer: %w", err)
	}

	if s.cascade != nil {
		err = s.cascade(ctx, racer)
		if err != nil {
			return fmt.Errorf("failed to delete racer data: %w", err)
		}
	}

	slog.Info("racer deleted", "racer_id", racer.ID)
	return nil
}

// Unlock runs the password gate for a racer. Ungated racers always pass.
func (s *RacerService) Unlock(ctx context.Context, id, password string) (*model.Racer, error) {
	racer, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.gate.CheckRacer(racer, password)
	if err != nil {
		if errors.Is(err, ErrWrongPassword) {
			slog.Warn("racer unlock rejected", "racer_id", racer.ID)
		}
		return nil, err
	}
	return racer, nil
}

// Gate exposes the password check for selection.
func (s *RacerService) Gate() *Gate {
	return s.gate
}

func normalizeRacerInput(in *RacerInput) (string, error) {
	err := validation.ValidateName(in.Name)
	if err != nil {
		return "", invalid("%v", err)
	}
	in.Name = strings.TrimSpace(in.Name)

	color := in.AvatarColor
	if color == "" {
		color = model.DefaultAvatarColor
	}
	if !model.ValidAvatarColor(color) {
		return "", invalid("unknown avatar color %q", color)
	}

	err = validation.ValidateAvatar(in.Avatar)
	if err != nil {
		return "", invalid("%v", err)
	}
	return color, nil
}
