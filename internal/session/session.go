// Package session keeps per-browser-session state in a signed cookie:
// locally owned racers, unlocked racers, the selected racer and the admin flag.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	CookieName = "striders_session"
	tokenTTL   = 30 * 24 * time.Hour
)

var ErrInvalidSession = errors.New("invalid session")

type Session struct {
	ID       string
	Owned    []string
	Unlocked []string
	// SelectedRacerID is the current selection; PersistedRacerID the last
	// successful one, used to restore a stale selection.
	SelectedRacerID  string
	PersistedRacerID string
	Admin            bool
}

type claims struct {
	Owned     []string `json:"own,omitempty"`
	Unlocked  []string `json:"unl,omitempty"`
	Selected  string   `json:"sel,omitempty"`
	Persisted string   `json:"per,omitempty"`
	Admin     bool     `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

func New() *Session {
	return &Session{ID: uuid.NewString()}
}

// OwnedSet returns the owned racer IDs as a lookup set.
func (s *Session) OwnedSet() map[string]bool {
	set := make(map[string]bool, len(s.Owned))
	for _, id := range s.Owned {
		set[id] = true
	}
	return set
}

func (s *Session) Owns(racerID string) bool {
	return slices.Contains(s.Owned, racerID)
}

func (s *Session) AddOwned(racerID string) {
	if !s.Owns(racerID) {
		s.Owned = append(s.Owned, racerID)
	}
}

func (s *Session) IsUnlocked(racerID string) bool {
	return slices.Contains(s.Unlocked, racerID)
}

func (s *Session) Unlock(racerID string) {
	if !s.IsUnlocked(racerID) {
		s.Unlocked = append(s.Unlocked, racerID)
	}
}

// Select records racerID as both the current and persisted selection.
func (s *Session) Select(racerID string) {
	s.SelectedRacerID = racerID
	if racerID != "" {
		s.PersistedRacerID = racerID
	}
}

// Forget drops every reference to a deleted racer.
func (s *Session) Forget(racerID string) {
	s.Owned = slices.DeleteFunc(s.Owned, func(id string) bool { return id == racerID })
	s.Unlocked = slices.DeleteFunc(s.Unlocked, func(id string) bool { return id == racerID })
	if s.SelectedRacerID == racerID {
		s.SelectedRacerID = ""
	}
	if s.PersistedRacerID == racerID {
		s.PersistedRacerID = ""
	}
}

// Manager signs and verifies session cookies.
type Manager struct {
	secret []byte
	secure bool
}

func NewManager(secret string, secure bool) *Manager {
	return &Manager{secret: []byte(secret), secure: secure}
}

// Load returns the session from the request cookie. ok is false when the
// cookie is missing or fails verification.
func (m *Manager) Load(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, false
	}

	s, err := m.Decode(cookie.Value)
	if err != nil {
		return nil, false
	}
	return s, true
}

func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	token, err := m.Encode(s)
	if err != nil {
		return err
	}

	// No Expires: the cookie lives as long as the browser session.
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) Encode(s *Session) (string, error) {
	now := time.Now()
	c := claims{
		Owned:     s.Owned,
		Unlocked:  s.Unlocked,
		Selected:  s.SelectedRacerID,
		Persisted: s.PersistedRacerID,
		Admin:     s.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, nil
}

func (m *Manager) Decode(tokenString string) (*Session, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !token.Valid || c.ID == "" {
		return nil, ErrInvalidSession
	}

	return &Session{
		ID:               c.ID,
		Owned:            c.Owned,
		Unlocked:         c.Unlocked,
		SelectedRacerID:  c.Selected,
		PersistedRacerID: c.Persisted,
		Admin:            c.Admin,
	}, nil
}
