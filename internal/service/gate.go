package service

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrWrongPassword  = errors.New("wrong password")
	ErrPasswordFormat = validation.ErrPasswordFormat
)

// Gate verifies the 4-digit passwords that protect racers and courses.
// Racer gates also accept a configured override password, compared
// case-insensitively.
type Gate struct {
	override string
	cost     int
}

func NewGate(override string) *Gate {
	return &Gate{
		override: strings.ToUpper(override),
		cost:     bcrypt.DefaultCost,
	}
}

func (g *Gate) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), g.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// IsOverride reports whether input matches the override password.
func (g *Gate) IsOverride(input string) bool {
	if g.override == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.ToUpper(input)), []byte(g.override)) == 1
}

// CheckRacer runs the racer password gate.
func (g *Gate) CheckRacer(racer *model.Racer, input string) error {
	if !racer.Gated() || g.IsOverride(input) {
		return nil
	}
	return checkPassword(racer.Password, input)
}

// checkPassword compares input against a stored bcrypt hash or a legacy
// plaintext value. The format is checked first so malformed input gets the
// format message instead of "wrong password".
func checkPassword(stored, input string) error {
	err := validation.ValidateGatePassword(input)
	if err != nil {
		return err
	}

	if isBcryptHash(stored) {
		err = bcrypt.CompareHashAndPassword([]byte(stored), []byte(input))
		if err != nil {
			return ErrWrongPassword
		}
		return nil
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(input)) != 1 {
		return ErrWrongPassword
	}
	return nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
