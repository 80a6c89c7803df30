package validation

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

const MaxEntrySeconds = 10

var (
	ErrTimeRequired = errors.New("time is required")
	ErrTimeInvalid  = errors.New("time must be a number")
	ErrTimeZero     = errors.New("time must be greater than zero")
)

var timeEntryPattern = regexp.MustCompile(`^\d*\.?\d{0,2}$`)

// AcceptTimeInput filters one keystroke of the quick time entry field.
// It returns the new field value: next when it is a valid partial entry,
// otherwise current unchanged.
func AcceptTimeInput(current, next string) string {
	if next == "" {
		return ""
	}
	if next == "." {
		return "0."
	}
	if !timeEntryPattern.MatchString(next) {
		return current
	}

	v, err := strconv.ParseFloat(next, 64)
	if err != nil || v < 0 || v > MaxEntrySeconds {
		return current
	}
	return next
}

// ParseSubmittableTime parses an entered time in seconds. Empty, zero,
// negative and non-numeric values are rejected.
func ParseSubmittableTime(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrTimeRequired
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrTimeInvalid
	}
	if v <= 0 {
		return 0, ErrTimeZero
	}
	return v, nil
}
