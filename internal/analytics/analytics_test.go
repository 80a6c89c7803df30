package analytics

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/speedystriders/tracker/internal/model"
)

func rec(id, racer string, d model.Distance, secs float64, ts int64, date string) *model.Record {
	return &model.Record{ID: id, RacerID: racer, Distance: d, TimeSeconds: secs, Timestamp: ts, DateStr: date}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuildChart(t *testing.T) {
	records := []*model.Record{
		rec("c", "r1", 30, 7.5, 3000, "2024-05-03"),
		rec("a", "r1", 30, 8.1, 1000, "2024-05-01"),
		rec("b", "r1", 30, 7.9, 2000, "2024-05-02"),
		rec("x", "r1", 10, 2.0, 1500, "2024-05-01"),
		rec("y", "r2", 30, 6.0, 1500, "2024-05-01"),
	}

	chart := BuildChart(records, "r1", 30)

	var order []string
	for _, p := range chart.Points {
		order = append(order, p.RecordID)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, order); diff != "" {
		t.Errorf("chart order mismatch (-want +got):\n%s", diff)
	}
	if chart.Points[0].Label != "05-01" {
		t.Errorf("label = %q, want 05-01", chart.Points[0].Label)
	}
	if chart.Count != 3 || !near(chart.Best, 7.5) || !near(chart.Average, 7.83) {
		t.Errorf("chart stats = count %d best %v avg %v", chart.Count, chart.Best, chart.Average)
	}

	empty := BuildChart(records, "nobody", 30)
	if empty.Count != 0 || empty.Best != 0 || empty.Average != 0 || len(empty.Points) != 0 {
		t.Errorf("empty chart = %+v", empty)
	}
}

func TestMonthly(t *testing.T) {
	records := []*model.Record{
		rec("1", "r1", 30, 8.10, 1, "2024-05-01"),
		rec("2", "r1", 30, 8.00, 2, "2024-05-10"),
		rec("3", "r1", 30, 7.90, 3, "2024-05-20"),
		rec("4", "r1", 30, 7.50, 4, "2024-06-01"),
		rec("5", "r1", 10, 2.00, 5, "2024-06-01"),
	}

	got := Monthly(records, "r1", 30)
	want := []MonthStat{
		{Month: "2024-05", Count: 3, Average: 8.00, Best: 7.90},
		{Month: "2024-06", Count: 1, Average: 7.50, Best: 7.50},
	}

	opt := cmp.Comparer(near)
	if diff := cmp.Diff(want, got, opt); diff != "" {
		t.Errorf("Monthly() mismatch (-want +got):\n%s", diff)
	}
}

func TestSplits(t *testing.T) {
	const day = 86_400_000
	records := []*model.Record{
		// paired entry: 10m at T+1
		rec("a30", "r1", 30, 7.20, 1000, "2024-05-01"),
		rec("a10", "r1", 10, 2.10, 1001, "2024-05-01"),
		// 30m without a same-day 10m partner
		rec("b30", "r1", 30, 7.00, day, "2024-05-02"),
		rec("b10", "r1", 10, 2.00, day+1, "2024-05-03"),
		// 10m too far away
		rec("c30", "r1", 30, 6.90, 5*day, "2024-05-06"),
		rec("c10", "r1", 10, 1.90, 5*day+5000, "2024-05-06"),
		// other racer
		rec("d30", "r2", 30, 6.00, 1000, "2024-05-01"),
		rec("d10", "r2", 10, 1.50, 1001, "2024-05-01"),
	}

	got := Splits(records, "r1")
	if len(got) != 1 {
		t.Fatalf("Splits() = %d pairs, want 1: %+v", len(got), got)
	}
	s := got[0]
	if s.Record30ID != "a30" || s.Record10ID != "a10" || !near(s.Difference, 5.10) {
		t.Errorf("Splits()[0] = %+v", s)
	}

	// The unpaired 30m records still show up in the plain chart.
	if chart := BuildChart(records, "r1", 30); chart.Count != 3 {
		t.Errorf("chart count = %d, want 3", chart.Count)
	}
}

func TestSplitsUsesEachTenOnce(t *testing.T) {
	records := []*model.Record{
		rec("a30", "r1", 30, 7.0, 1000, "2024-05-01"),
		rec("b30", "r1", 30, 7.1, 1100, "2024-05-01"),
		rec("a10", "r1", 10, 2.0, 1001, "2024-05-01"),
	}

	got := Splits(records, "r1")
	if len(got) != 1 || got[0].Record30ID != "a30" {
		t.Errorf("Splits() = %+v, want only a30 paired", got)
	}
}

func TestGroupByDate(t *testing.T) {
	records := []*model.Record{
		rec("a", "r1", 30, 7.0, 100, "2024-05-01"),
		rec("b", "r1", 30, 7.0, 300, "2024-05-02"),
		rec("c", "r1", 30, 7.0, 200, "2024-05-01"),
	}

	groups := GroupByDate(records)
	if len(groups) != 2 {
		t.Fatalf("GroupByDate() = %d groups, want 2", len(groups))
	}
	if groups[0].Date != "2024-05-02" || groups[1].Date != "2024-05-01" {
		t.Errorf("group dates = %s, %s", groups[0].Date, groups[1].Date)
	}
	if groups[1].Records[0].ID != "c" || groups[1].Records[1].ID != "a" {
		t.Errorf("records within day not newest first")
	}
}

func TestOnDate(t *testing.T) {
	records := []*model.Record{
		rec("a", "r1", 30, 7.0, 100, "2024-05-01"),
		rec("b", "r1", 30, 7.0, 300, "2024-05-01"),
		rec("c", "r1", 30, 7.0, 200, "2024-05-01"),
		rec("d", "r1", 30, 7.0, 400, "2024-05-02"),
	}

	got := OnDate(records, "2024-05-01", 2)
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Errorf("OnDate() = %v", got)
	}
}
