// Package analytics derives chart, trend and history views from records.
// Every function is pure and recomputes from the full slice it is given.
package analytics

import (
	"math"
	"sort"

	"github.com/speedystriders/tracker/internal/model"
)

// Point is one chart sample.
type Point struct {
	RecordID  string  `json:"recordId"`
	Date      string  `json:"date"`
	Label     string  `json:"label"` // MM-DD
	Time      float64 `json:"time"`
	Timestamp int64   `json:"timestamp"`
}

type Chart struct {
	Points  []Point `json:"points"`
	Count   int     `json:"count"`
	Best    float64 `json:"best"`
	Average float64 `json:"average"`
}

// BuildChart returns the racer's records at distance in chronological order
// with their best (minimum) and average time.
func BuildChart(records []*model.Record, racerID string, distance model.Distance) Chart {
	matching := filter(records, racerID, distance)
	sortChronological(matching)

	chart := Chart{Points: make([]Point, 0, len(matching)), Count: len(matching)}
	if len(matching) == 0 {
		return chart
	}

	times := make([]float64, 0, len(matching))
	for _, r := range matching {
		chart.Points = append(chart.Points, Point{
			RecordID:  r.ID,
			Date:      r.DateStr,
			Label:     dayLabel(r.DateStr),
			Time:      r.TimeSeconds,
			Timestamp: r.Timestamp,
		})
		times = append(times, r.TimeSeconds)
	}

	chart.Best = best(times)
	chart.Average = mean(times)
	return chart
}

func filter(records []*model.Record, racerID string, distance model.Distance) []*model.Record {
	out := make([]*model.Record, 0)
	for _, r := range records {
		if r.RacerID == racerID && r.Distance == distance {
			out = append(out, r)
		}
	}
	return out
}

func sortChronological(records []*model.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp < records[j].Timestamp
	})
}

func dayLabel(date string) string {
	if len(date) < 10 {
		return date
	}
	return date[5:10]
}

func best(times []float64) float64 {
	m := times[0]
	for _, t := range times[1:] {
		m = math.Min(m, t)
	}
	return m
}

func mean(times []float64) float64 {
	sum := 0.0
	for _, t := range times {
		sum += t
	}
	return round2(sum / float64(len(times)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
