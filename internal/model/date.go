package model

import "time"

const DateLayout = "2006-01-02"

// LocalDate formats t as a calendar date in loc.
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// TimeOf converts a millisecond epoch timestamp.
func TimeOf(ms int64) time.Time {
	return time.UnixMilli(ms)
}
