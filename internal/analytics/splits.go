package analytics

import (
	"github.com/speedystriders/tracker/internal/model"
)

// SplitTolerance is the widest timestamp gap, in milliseconds, between a 30m
// record and the 10m record it is paired with. Paired entry writes them 1 ms apart.
const SplitTolerance = 1000

type Split struct {
	Date       string  `json:"date"`
	Label      string  `json:"label"`
	Timestamp  int64   `json:"timestamp"`
	Record30ID string  `json:"record30Id"`
	Record10ID string  `json:"record10Id"`
	Time30     float64 `json:"time30"`
	Time10     float64 `json:"time10"`
	Difference float64 `json:"difference"` // Time30 - Time10
}

// Splits pairs each 30m record with the nearest unused same-day 10m record
// of the racer. 30m records without a partner are left out.
func Splits(records []*model.Record, racerID string) []Split {
	thirties := filter(records, racerID, model.Distance30)
	tens := filter(records, racerID, model.Distance10)
	sortChronological(thirties)
	sortChronological(tens)

	used := make([]bool, len(tens))
	splits := make([]Split, 0)

	for _, r30 := range thirties {
		match := -1
		var gap int64
		for i, r10 := range tens {
			if used[i] || r10.DateStr != r30.DateStr {
				continue
			}
			d := abs(r10.Timestamp - r30.Timestamp)
			if d > SplitTolerance {
				continue
			}
			if match == -1 || d < gap {
				match, gap = i, d
			}
		}
		if match == -1 {
			continue
		}

		used[match] = true
		r10 := tens[match]
		splits = append(splits, Split{
			Date:       r30.DateStr,
			Label:      dayLabel(r30.DateStr),
			Timestamp:  r30.Timestamp,
			Record30ID: r30.ID,
			Record10ID: r10.ID,
			Time30:     r30.TimeSeconds,
			Time10:     r10.TimeSeconds,
			Difference: round2(r30.TimeSeconds - r10.TimeSeconds),
		})
	}
	return splits
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
