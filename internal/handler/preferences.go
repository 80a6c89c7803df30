package handler

import (
	"net/http"

	"github.com/speedystriders/tracker/internal/ctxkeys"
	"github.com/speedystriders/tracker/internal/prefs"
	"github.com/speedystriders/tracker/internal/theme"
	"github.com/speedystriders/tracker/internal/validation"
)

type PreferencesHandler struct{}

func NewPreferencesHandler() *PreferencesHandler {
	return &PreferencesHandler{}
}

func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ctxkeys.Preferences(r.Context()))
}

// Put updates the fields present in the body.
func (h *PreferencesHandler) Put(w http.ResponseWriter, r *http.Request) {
	p := ctxkeys.Preferences(r.Context())

	var body struct {
		Theme    *string `json:"theme"`
		LastTime *string `json:"lastTime"`
	}
	err := decodeJSON(w, r, &body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	if body.Theme != nil {
		name, err := theme.Parse(*body.Theme)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown_theme", err.Error())
			return
		}
		p.Theme = name
	}
	if body.LastTime != nil {
		if validation.AcceptTimeInput("", *body.LastTime) != *body.LastTime {
			writeError(w, http.StatusBadRequest, "invalid_time", "last time must be between 0 and 10 seconds")
			return
		}
		p.LastTime = *body.LastTime
	}

	err = prefs.Save(w, p, secureCookies(r))
	if err != nil {
		writeServiceError(w, r, err, "save preferences")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PreferencesHandler) Themes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, theme.All())
}

// TimeInput runs the quick-entry keystroke filter and returns the field value.
func (h *PreferencesHandler) TimeInput(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Current string `json:"current"`
		Next    string `json:"next"`
	}
	err := decodeJSON(w, r, &body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
		return
	}

	value := validation.AcceptTimeInput(body.Current, body.Next)
	writeJSON(w, http.StatusOK, map[string]any{
		"value":    value,
		"accepted": value == body.Next || (body.Next == "." && value == "0."),
	})
}
