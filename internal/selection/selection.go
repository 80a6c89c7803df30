// Package selection tracks which racer a browser session is recording for.
package selection

import (
	"errors"

	"github.com/speedystriders/tracker/internal/model"
)

type Status string

const (
	StatusNone     Status = "none"
	StatusSelected Status = "selected"
	StatusStale    Status = "stale" // selected racer no longer exists
)

var ErrNoRacer = errors.New("racer not found")

// GateFunc checks a password for a gated racer.
type GateFunc func(racer *model.Racer, password string) error

type State struct {
	RacerID string `json:"racerId,omitempty"`
}

func (s State) Status(racers []*model.Racer) Status {
	if s.RacerID == "" {
		return StatusNone
	}
	if find(racers, s.RacerID) == nil {
		return StatusStale
	}
	return StatusSelected
}

// Reconcile repairs a stale selection: the persisted racer is restored when it
// still exists, otherwise nothing is selected. It never picks a racer on its own.
func Reconcile(s State, persistedID string, racers []*model.Racer) State {
	if s.Status(racers) != StatusStale && s.RacerID != "" {
		return s
	}
	if persistedID != "" && find(racers, persistedID) != nil {
		return State{RacerID: persistedID}
	}
	return State{}
}

// Select moves to racer. Gated racers need a passing gate check unless the
// session already unlocked them; on failure the state is returned unchanged.
func Select(s State, racer *model.Racer, password string, unlocked bool, gate GateFunc) (State, error) {
	if racer == nil {
		return s, ErrNoRacer
	}
	if racer.Gated() && !unlocked {
		err := gate(racer, password)
		if err != nil {
			return s, err
		}
	}
	return State{RacerID: racer.ID}, nil
}

func find(racers []*model.Racer, id string) *model.Racer {
	for _, r := range racers {
		if r.ID == id {
			return r
		}
	}
	return nil
}
