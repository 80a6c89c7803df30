// Package prefs stores per-browser preferences in a long-lived cookie.
package prefs

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/speedystriders/tracker/internal/theme"
	"github.com/speedystriders/tracker/internal/validation"
)

const (
	CookieName = "striders_prefs"
	maxAge     = 365 * 24 * time.Hour
)

type Preferences struct {
	Theme    theme.Name `json:"theme"`
	LastTime string     `json:"lastTime"`
}

func Defaults() Preferences {
	return Preferences{Theme: theme.Default}
}

// Load reads preferences from the request. Missing or invalid values fall
// back to defaults field by field.
func Load(r *http.Request) Preferences {
	p := Defaults()

	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return p
	}
	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return p
	}

	var stored Preferences
	err = json.Unmarshal(data, &stored)
	if err != nil {
		return p
	}

	if name, err := theme.Parse(string(stored.Theme)); err == nil {
		p.Theme = name
	}
	if validation.AcceptTimeInput("", stored.LastTime) == stored.LastTime {
		p.LastTime = stored.LastTime
	}
	return p
}

func Save(w http.ResponseWriter, p Preferences, secure bool) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
