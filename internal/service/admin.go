package service

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/speedystriders/tracker/internal/model"
)

// AdminService guards the admin panel and its bulk operations.
type AdminService struct {
	password string
	racers   *RacerService
	records  *RecordService
}

func NewAdminService(password string, racers *RacerService, records *RecordService) *AdminService {
	return &AdminService{
		password: strings.ToUpper(password),
		racers:   racers,
		records:  records,
	}
}

// Authenticate compares case-insensitively against the configured password.
func (s *AdminService) Authenticate(password string) error {
	if s.password == "" || password == "" {
		return ErrWrongPassword
	}
	if subtle.ConstantTimeCompare([]byte(strings.ToUpper(password)), []byte(s.password)) != 1 {
		return ErrWrongPassword
	}
	return nil
}

// Racers lists every racer, private ones included.
func (s *AdminService) Racers(ctx context.Context) ([]*model.Racer, error) {
	return s.racers.Racers(ctx)
}

func (s *AdminService) CreateRacer(ctx context.Context, in RacerInput) (*model.Racer, error) {
	return s.racers.Add(ctx, in)
}

func (s *AdminService) Import(ctx context.Context, in ImportInput) (ImportResult, error) {
	return s.records.Import(ctx, in)
}
