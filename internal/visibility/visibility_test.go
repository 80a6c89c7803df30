package visibility

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/speedystriders/tracker/internal/model"
)

func ids(records []*model.Record) []string {
	out := []string{}
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	racers := []*model.Racer{
		{ID: "public", Name: "Mia", IsPublic: true},
		{ID: "private", Name: "Leo"},
		{ID: "mine", Name: "Ada"},
	}
	records := []*model.Record{
		{ID: "r1", RacerID: "public"},
		{ID: "r2", RacerID: "private"},
		{ID: "r3", RacerID: "mine"},
		{ID: "r4", RacerID: "deleted"},
	}

	tests := []struct {
		name  string
		owned map[string]bool
		want  []string
	}{
		{name: "stranger sees public only", owned: nil, want: []string{"r1"}},
		{name: "owner sees own private racer", owned: map[string]bool{"mine": true}, want: []string{"r1", "r3"}},
		{name: "orphans never visible", owned: map[string]bool{"deleted": true}, want: []string{"r1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(records, racers, tt.owned))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMemo(t *testing.T) {
	racers := []*model.Racer{{ID: "a", IsPublic: true}}
	records := []*model.Record{{ID: "r1", RacerID: "a"}}

	var memo Memo[*model.Record]
	first := memo.Filter(1, records, 1, racers, nil)
	if len(first) != 1 {
		t.Fatalf("Filter() = %d records, want 1", len(first))
	}

	// Same versions: the cached slice is returned even if the input changed.
	more := append(records, &model.Record{ID: "r2", RacerID: "a"})
	cached := memo.Filter(1, more, 1, racers, nil)
	if len(cached) != 1 {
		t.Errorf("cached Filter() = %d records, want 1", len(cached))
	}

	fresh := memo.Filter(2, more, 1, racers, nil)
	if len(fresh) != 2 {
		t.Errorf("Filter() after version bump = %d records, want 2", len(fresh))
	}

	private := []*model.Racer{{ID: "a"}}
	hidden := memo.Filter(2, more, 2, private, nil)
	if len(hidden) != 0 {
		t.Errorf("Filter() with private racer = %d records, want 0", len(hidden))
	}

	owned := memo.Filter(2, more, 2, private, map[string]bool{"a": true})
	if len(owned) != 2 {
		t.Errorf("Filter() with owned set change = %d records, want 2", len(owned))
	}
}
