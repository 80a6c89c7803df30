package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/repository"
	"github.com/speedystriders/tracker/internal/selection"
	"github.com/speedystriders/tracker/internal/service"
	"github.com/speedystriders/tracker/internal/session"
	"github.com/speedystriders/tracker/internal/storage"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message, Code: status})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeServiceError maps service and repository errors to status codes.
// Anything unknown is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", service.InputMessage(err))
	case errors.Is(err, service.ErrPasswordFormat):
		writeError(w, http.StatusUnprocessableEntity, "password_format", err.Error())
	case errors.Is(err, service.ErrWrongPassword):
		writeError(w, http.StatusUnauthorized, "wrong_password", "密碼錯誤")
	case errors.Is(err, repository.ErrRacerNotFound), errors.Is(err, selection.ErrNoRacer):
		writeError(w, http.StatusNotFound, "racer_not_found", "找不到選手")
	case errors.Is(err, repository.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "record_not_found", "找不到紀錄")
	case errors.Is(err, repository.ErrTrainingNotFound):
		writeError(w, http.StatusNotFound, "training_not_found", "找不到訓練紀錄")
	case errors.Is(err, service.ErrCourseNotFound):
		writeError(w, http.StatusNotFound, "course_not_found", "找不到課程")
	case errors.Is(err, service.ErrUnknownCategory):
		writeError(w, http.StatusBadRequest, "unknown_category", err.Error())
	case errors.Is(err, service.ErrAutoSaveTarget):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, service.ErrAvatarStorageDisabled):
		writeError(w, http.StatusNotImplemented, "avatar_uploads_disabled", err.Error())
	case errors.Is(err, storage.ErrObjectNotFound):
		writeError(w, http.StatusNotFound, "not_found", "not found")
	default:
		slog.Error("failed to "+action, "error", err, "method", r.Method, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to "+action)
	}
}

// saveSession persists session changes; it must run before the body is written.
func saveSession(w http.ResponseWriter, manager *session.Manager, s *session.Session) {
	err := manager.Save(w, s)
	if err != nil {
		slog.Error("failed to save session", "error", err, "session_id", s.ID)
	}
}

// ownedSet is the session's owned set; admins own every racer.
func ownedSet(s *session.Session, racers []*model.Racer) map[string]bool {
	if !s.Admin {
		return s.OwnedSet()
	}
	all := make(map[string]bool, len(racers))
	for _, r := range racers {
		all[r.ID] = true
	}
	return all
}

// canWrite reports whether the session may change data of racer. Gated
// racers must be unlocked first.
func canWrite(s *session.Session, racer *model.Racer) bool {
	return s.Admin || !racer.Gated() || s.IsUnlocked(racer.ID)
}

func writeLocked(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "racer_locked", "請先輸入選手密碼")
}

// racerView is the API shape of a racer; the password never leaves the server.
type racerView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	AvatarColor     string `json:"avatarColor"`
	Avatar          string `json:"avatar,omitempty"`
	CreatedAt       int64  `json:"createdAt"`
	RequirePassword bool   `json:"requirePassword"`
	IsPublic        bool   `json:"isPublic"`
	Owned           bool   `json:"owned"`
	Unlocked        bool   `json:"unlocked"`
}

func viewRacer(s *session.Session, r *model.Racer) racerView {
	return racerView{
		ID:              r.ID,
		Name:            r.Name,
		AvatarColor:     r.AvatarColor,
		Avatar:          r.Avatar,
		CreatedAt:       r.CreatedAt,
		RequirePassword: r.Gated(),
		IsPublic:        r.IsPublic,
		Owned:           s.Owns(r.ID),
		Unlocked:        !r.Gated() || s.IsUnlocked(r.ID),
	}
}

func viewRacers(s *session.Session, racers []*model.Racer) []racerView {
	out := make([]racerView, 0, len(racers))
	for _, r := range racers {
		out = append(out, viewRacer(s, r))
	}
	return out
}
