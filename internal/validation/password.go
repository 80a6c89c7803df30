package validation

import (
	"errors"
	"regexp"
)

var ErrPasswordFormat = errors.New("password must be exactly 4 digits")

var gatePasswordPattern = regexp.MustCompile(`^\d{4}$`)

// ValidateGatePassword checks the 4-digit format used by racer and course gates.
func ValidateGatePassword(password string) error {
	if !gatePasswordPattern.MatchString(password) {
		return ErrPasswordFormat
	}
	return nil
}
