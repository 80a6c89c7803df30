package analytics

import (
	"sort"

	"github.com/speedystriders/tracker/internal/model"
)

type DayGroup struct {
	Date    string          `json:"date"`
	Records []*model.Record `json:"records"`
}

// GroupByDate groups records by dateStr: newest date first, newest record first.
func GroupByDate(records []*model.Record) []DayGroup {
	index := make(map[string]int)
	groups := make([]DayGroup, 0)

	for _, r := range records {
		i, ok := index[r.DateStr]
		if !ok {
			i = len(groups)
			index[r.DateStr] = i
			groups = append(groups, DayGroup{Date: r.DateStr})
		}
		groups[i].Records = append(groups[i].Records, r)
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Date > groups[j].Date
	})
	for _, g := range groups {
		sort.SliceStable(g.Records, func(i, j int) bool {
			return g.Records[i].Timestamp > g.Records[j].Timestamp
		})
	}
	return groups
}

// OnDate returns the records of one local date, newest first, at most limit
// of them when limit > 0.
func OnDate(records []*model.Record, date string, limit int) []*model.Record {
	out := make([]*model.Record, 0)
	for _, r := range records {
		if r.DateStr == date {
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
