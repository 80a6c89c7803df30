package handler

import (
	"errors"
	"net/http"

	"github.com/speedystriders/tracker/internal/service"
)

const coursePasswordHeader = "X-Course-Password"

// Limiter throttles password attempts per client.
type Limiter interface {
	AllowRequest(r *http.Request) bool
}

type CourseHandler struct {
	courseService *service.CourseService
	attempts      Limiter
}

func NewCourseHandler(courseService *service.CourseService, attempts Limiter) *CourseHandler {
	return &CourseHandler{
		courseService: courseService,
		attempts:      attempts,
	}
}

func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courseService.Courses(r.URL.Query().Get("category"))
	if err != nil {
		writeServiceError(w, r, err, "load courses")
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

// Show returns the full course. Gated courses need the X-Course-Password
// header; without it the summary comes back with 401.
func (h *CourseHandler) Show(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	password := r.Header.Get(coursePasswordHeader)

	if password != "" && h.attempts != nil && !h.attempts.AllowRequest(r) {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many attempts. Please try again later.")
		return
	}

	course, err := h.courseService.Open(id, password)
	if err == nil {
		writeJSON(w, http.StatusOK, course)
		return
	}

	if password == "" && errors.Is(err, service.ErrPasswordFormat) {
		summary, sumErr := h.courseService.Course(id)
		if sumErr != nil {
			writeServiceError(w, r, sumErr, "load course")
			return
		}
		writeJSON(w, http.StatusUnauthorized, summary)
		return
	}
	writeServiceError(w, r, err, "open course")
}
