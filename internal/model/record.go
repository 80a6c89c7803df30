package model

import (
	"errors"
	"strconv"
)

type Distance int

const (
	Distance10 Distance = 10
	Distance30 Distance = 30
	Distance50 Distance = 50
)

var Distances = []Distance{Distance10, Distance30, Distance50}

const (
	RecordTypeManual    = "manual"
	RecordTypeStopwatch = "stopwatch"
)

var ErrInvalidDistance = errors.New("distance must be one of 10, 30, 50")

func (d Distance) Valid() bool {
	switch d {
	case Distance10, Distance30, Distance50:
		return true
	}
	return false
}

func ParseDistance(s string) (Distance, error) {
	n, err := strconv.Atoi(s)
	if err != nil || !Distance(n).Valid() {
		return 0, ErrInvalidDistance
	}
	return Distance(n), nil
}

// Record is one timed sprint. DateStr is the local calendar date (YYYY-MM-DD)
// of the creator at write time and is never recomputed.
type Record struct {
	ID          string   `json:"id"`
	RacerID     string   `json:"racerId"`
	Distance    Distance `json:"distance"`
	TimeSeconds float64  `json:"timeSeconds"`
	Timestamp   int64    `json:"timestamp"`
	DateStr     string   `json:"dateStr"`
	RecordType  string   `json:"recordType,omitempty"`
}

func (r *Record) OwnerID() string {
	return r.RacerID
}

func (r *Record) At() int64 {
	return r.Timestamp
}
