package model

import "errors"

type TrainingType string

const (
	TrainingSprint        TrainingType = "sprint"
	TrainingEndurance     TrainingType = "endurance"
	TrainingStartPractice TrainingType = "start_practice"
)

var TrainingTypes = []TrainingType{TrainingSprint, TrainingEndurance, TrainingStartPractice}

var ErrInvalidTrainingType = errors.New("training type must be one of sprint, endurance, start_practice")

func (t TrainingType) Valid() bool {
	switch t {
	case TrainingSprint, TrainingEndurance, TrainingStartPractice:
		return true
	}
	return false
}

type TrainingSession struct {
	ID              string       `json:"id"`
	RacerID         string       `json:"racerId"`
	Type            TrainingType `json:"type"`
	DurationSeconds float64      `json:"durationSeconds"`
	Note            string       `json:"note,omitempty"`
	Timestamp       int64        `json:"timestamp"`
	DateStr         string       `json:"dateStr"`
}

func (s *TrainingSession) OwnerID() string {
	return s.RacerID
}

func (s *TrainingSession) At() int64 {
	return s.Timestamp
}
