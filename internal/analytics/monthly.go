package analytics

import (
	"sort"

	"github.com/speedystriders/tracker/internal/model"
)

type MonthStat struct {
	Month   string  `json:"month"` // YYYY-MM
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Best    float64 `json:"best"`
}

// Monthly buckets the racer's records at distance by dateStr month.
func Monthly(records []*model.Record, racerID string, distance model.Distance) []MonthStat {
	buckets := make(map[string][]float64)
	for _, r := range filter(records, racerID, distance) {
		if len(r.DateStr) < 7 {
			continue
		}
		month := r.DateStr[:7]
		buckets[month] = append(buckets[month], r.TimeSeconds)
	}

	stats := make([]MonthStat, 0, len(buckets))
	for month, times := range buckets {
		stats = append(stats, MonthStat{
			Month:   month,
			Count:   len(times),
			Average: mean(times),
			Best:    best(times),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Month < stats[j].Month
	})
	return stats
}
