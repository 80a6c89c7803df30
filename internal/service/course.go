package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/speedystriders/tracker/internal/markdown"
	"github.com/speedystriders/tracker/internal/model"
	"github.com/speedystriders/tracker/internal/validation"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const CourseCategoryAll = "all"

var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrUnknownCategory    = errors.New("unknown course category")
	ErrCoursePasswordSize = errors.New("course password must be exactly 4 digits")
)

type courseMeta struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Order       int    `yaml:"order"`
	Duration    string `yaml:"duration"`
	Thumbnail   string `yaml:"thumbnail"`
	VideoURL    string `yaml:"video_url"`
	Password    string `yaml:"password"`
}

// CourseService serves the learning classroom, loaded once from markdown
// files under <content>/courses.
type CourseService struct {
	parser      *markdown.Parser
	contentPath string
	courses     []*model.Course
}

func NewCourseService(contentPath string) *CourseService {
	return &CourseService{
		parser:      markdown.NewParser(),
		contentPath: contentPath,
	}
}

// Load reads every course file. A missing directory yields an empty catalogue.
func (s *CourseService) Load() error {
	dir := filepath.Join(s.contentPath, "courses")
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		slog.Warn("no courses found", "path", dir)
	}

	courses := make([]*model.Course, 0, len(files))
	seen := make(map[string]bool)
	for _, path := range files {
		course, err := s.loadCourse(path)
		if err != nil {
			return fmt.Errorf("failed to load course %s: %w", path, err)
		}
		if seen[course.ID] {
			return fmt.Errorf("duplicate course id %q in %s", course.ID, path)
		}
		seen[course.ID] = true
		courses = append(courses, course)
	}

	sort.Slice(courses, func(i, j int) bool {
		if courses[i].Order != courses[j].Order {
			return courses[i].Order < courses[j].Order
		}
		return courses[i].ID < courses[j].ID
	})

	s.courses = courses
	slog.Info("courses loaded", "count", len(courses))
	return nil
}

func (s *CourseService) loadCourse(path string) (*model.Course, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var meta courseMeta
	html, err := s.parser.ParseDocument(source, &meta)
	if err != nil {
		return nil, err
	}

	slug := strings.TrimSuffix(filepath.Base(path), ".md")
	if meta.ID == "" {
		meta.ID = slug
	}
	if meta.Title == "" {
		meta.Title = titleFromSlug(slug)
	}
	if meta.Category == "" {
		meta.Category = model.CourseCategoryBasic
	}
	if !slices.Contains(model.CourseCategories, meta.Category) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, meta.Category)
	}
	if meta.Password != "" && validation.ValidateGatePassword(meta.Password) != nil {
		return nil, ErrCoursePasswordSize
	}

	return &model.Course{
		ID:              meta.ID,
		Title:           meta.Title,
		Description:     meta.Description,
		Category:        meta.Category,
		Order:           meta.Order,
		Duration:        meta.Duration,
		Thumbnail:       meta.Thumbnail,
		VideoURL:        meta.VideoURL,
		EmbedURL:        YouTubeEmbedURL(meta.VideoURL),
		HTMLContent:     string(html),
		RequirePassword: meta.Password != "",
		Password:        meta.Password,
	}, nil
}

// Courses lists course summaries of a category ("" or "all" for every course).
func (s *CourseService) Courses(category string) ([]*model.Course, error) {
	if category != "" && category != CourseCategoryAll && !slices.Contains(model.CourseCategories, category) {
		return nil, ErrUnknownCategory
	}

	out := make([]*model.Course, 0, len(s.courses))
	for _, c := range s.courses {
		if category == "" || category == CourseCategoryAll || c.Category == category {
			out = append(out, c.Summary())
		}
	}
	return out, nil
}

// Course returns a course summary; gated content is left out.
func (s *CourseService) Course(id string) (*model.Course, error) {
	c := s.find(id)
	if c == nil {
		return nil, ErrCourseNotFound
	}
	return c.Summary(), nil
}

// Open returns the full course. Course gates have no override password.
func (s *CourseService) Open(id, password string) (*model.Course, error) {
	c := s.find(id)
	if c == nil {
		return nil, ErrCourseNotFound
	}
	if !c.RequirePassword {
		return c, nil
	}

	err := validation.ValidateGatePassword(password)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(c.Password), []byte(password)) != 1 {
		return nil, ErrWrongPassword
	}
	return c, nil
}

func (s *CourseService) find(id string) *model.Course {
	for _, c := range s.courses {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func titleFromSlug(slug string) string {
	words := strings.ReplaceAll(slug, "-", " ")
	return cases.Title(language.English).String(words)
}

// YouTubeEmbedURL rewrites watch, short and embed links to an embed URL with
// reduced branding and no related videos. Other URLs are returned unchanged.
func YouTubeEmbedURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	var videoID string
	host := strings.TrimPrefix(u.Host, "www.")
	switch {
	case (host == "youtube.com" || host == "m.youtube.com") && u.Path == "/watch":
		videoID = u.Query().Get("v")
	case host == "youtu.be":
		videoID = strings.Trim(u.Path, "/")
	case host == "youtube.com" && strings.HasPrefix(u.Path, "/embed/"):
		videoID = strings.TrimPrefix(u.Path, "/embed/")
	}
	if videoID == "" || strings.Contains(videoID, "/") {
		return raw
	}

	return "https://www.youtube.com/embed/" + url.PathEscape(videoID) + "?modestbranding=1&rel=0"
}
