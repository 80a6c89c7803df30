package service

import (
	"errors"
	"fmt"
)

// ErrInvalidInput wraps every validation failure; the wrapped message is
// safe to show next to the offending field.
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// InputMessage strips the ErrInvalidInput prefix for display.
func InputMessage(err error) string {
	msg := err.Error()
	prefix := ErrInvalidInput.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
