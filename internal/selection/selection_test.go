package selection

import (
	"errors"
	"testing"

	"github.com/speedystriders/tracker/internal/model"
)

var errWrong = errors.New("wrong password")

func gate(racer *model.Racer, password string) error {
	if password != "1234" {
		return errWrong
	}
	return nil
}

func TestReconcile(t *testing.T) {
	racers := []*model.Racer{{ID: "a"}, {ID: "b"}}

	tests := []struct {
		name      string
		state     State
		persisted string
		racers    []*model.Racer
		want      State
	}{
		{name: "none stays none", state: State{}, racers: racers, want: State{}},
		{name: "none restores persisted", state: State{}, persisted: "b", racers: racers, want: State{RacerID: "b"}},
		{name: "selected stays selected", state: State{RacerID: "a"}, persisted: "b", racers: racers, want: State{RacerID: "a"}},
		{name: "stale restores persisted", state: State{RacerID: "gone"}, persisted: "b", racers: racers, want: State{RacerID: "b"}},
		{name: "stale without persisted", state: State{RacerID: "gone"}, racers: racers, want: State{}},
		{name: "stale persisted also gone", state: State{RacerID: "gone"}, persisted: "gone", racers: racers, want: State{}},
		{name: "never auto picks", state: State{RacerID: "gone"}, racers: []*model.Racer{{ID: "only"}}, want: State{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.state, tt.persisted, tt.racers)
			if got != tt.want {
				t.Errorf("Reconcile() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	racers := []*model.Racer{{ID: "a"}}

	if got := (State{}).Status(racers); got != StatusNone {
		t.Errorf("Status() = %s, want none", got)
	}
	if got := (State{RacerID: "a"}).Status(racers); got != StatusSelected {
		t.Errorf("Status() = %s, want selected", got)
	}
	if got := (State{RacerID: "x"}).Status(racers); got != StatusStale {
		t.Errorf("Status() = %s, want stale", got)
	}
}

func TestSelect(t *testing.T) {
	open := &model.Racer{ID: "open"}
	gated := &model.Racer{ID: "gated", RequirePassword: true, Password: "hash"}
	start := State{RacerID: "open"}

	got, err := Select(State{}, open, "", false, gate)
	if err != nil || got.RacerID != "open" {
		t.Errorf("Select(open) = %+v, %v", got, err)
	}

	got, err = Select(start, gated, "0000", false, gate)
	if !errors.Is(err, errWrong) {
		t.Errorf("Select(gated, wrong) error = %v, want errWrong", err)
	}
	if got != start {
		t.Errorf("Select(gated, wrong) state = %+v, want unchanged %+v", got, start)
	}

	got, err = Select(start, gated, "1234", false, gate)
	if err != nil || got.RacerID != "gated" {
		t.Errorf("Select(gated, right) = %+v, %v", got, err)
	}

	got, err = Select(start, gated, "", true, gate)
	if err != nil || got.RacerID != "gated" {
		t.Errorf("Select(gated, unlocked) = %+v, %v", got, err)
	}

	_, err = Select(start, nil, "", false, gate)
	if !errors.Is(err, ErrNoRacer) {
		t.Errorf("Select(nil) error = %v, want ErrNoRacer", err)
	}
}
