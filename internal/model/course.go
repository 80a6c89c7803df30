package model

const (
	CourseCategoryBasic     = "basic"
	CourseCategoryAdvanced  = "advanced"
	CourseCategoryTechnique = "technique"
	CourseCategorySafety    = "safety"
)

var CourseCategories = []string{
	CourseCategoryBasic,
	CourseCategoryAdvanced,
	CourseCategoryTechnique,
	CourseCategorySafety,
}

type Course struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	Order           int    `json:"order"`
	Duration        string `json:"duration,omitempty"`
	Thumbnail       string `json:"thumbnail,omitempty"`
	VideoURL        string `json:"videoUrl,omitempty"`
	EmbedURL        string `json:"embedUrl,omitempty"`
	HTMLContent     string `json:"content,omitempty"`
	RequirePassword bool   `json:"requirePassword"`
	Password        string `json:"-"`
}

// Summary drops the content and video of gated courses.
func (c *Course) Summary() *Course {
	s := *c
	if s.RequirePassword {
		s.HTMLContent = ""
		s.VideoURL = ""
		s.EmbedURL = ""
	}
	return &s
}
