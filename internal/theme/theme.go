// Package theme holds the closed set of UI themes and composes their
// Tailwind class lists.
package theme

import (
	"errors"
	"strings"

	twmerge "github.com/Oudwins/tailwind-merge-go"
)

type Name string

const (
	Cute  Name = "cute"
	Tech  Name = "tech"
	Dark  Name = "dark"
	Light Name = "light"

	Default = Light
)

var ErrUnknownTheme = errors.New("unknown theme")

// Classes are the per-theme Tailwind tokens.
type Classes struct {
	Page          string `json:"page"`
	Text          string `json:"text"`
	TextSecondary string `json:"textSecondary"`
	Primary       string `json:"primary"`
	Card          string `json:"card"`
	Border        string `json:"border"`
	Header        string `json:"header"`
	HeaderIcon    string `json:"headerIcon"`
	Button        string `json:"button"`
	ButtonHover   string `json:"buttonHover"`
	NavActive     string `json:"navActive"`
	NavInactive   string `json:"navInactive"`
}

type Theme struct {
	ID      Name    `json:"id"`
	Label   string  `json:"name"`
	Icon    string  `json:"icon"`
	Dark    bool    `json:"dark"`
	Classes Classes `json:"classes"`
}

var order = []Name{Cute, Tech, Dark, Light}

var themes = map[Name]Theme{
	Cute: {
		ID:    Cute,
		Label: "可愛動物風",
		Icon:  "🐾",
		Classes: Classes{
			Page:          "bg-rose-50",
			Text:          "text-gray-800",
			TextSecondary: "text-gray-500",
			Primary:       "text-pink-500",
			Card:          "bg-white",
			Border:        "border-pink-100",
			Header:        "bg-gradient-to-r from-pink-400 to-rose-400",
			HeaderIcon:    "bg-pink-500",
			Button:        "bg-pink-500 hover:bg-pink-600",
			ButtonHover:   "hover:bg-pink-50",
			NavActive:     "text-pink-600",
			NavInactive:   "text-gray-400 hover:text-pink-400",
		},
	},
	Tech: {
		ID:    Tech,
		Label: "科技競速風",
		Icon:  "⚡",
		Dark:  true,
		Classes: Classes{
			Page:          "bg-slate-900",
			Text:          "text-slate-200",
			TextSecondary: "text-slate-400",
			Primary:       "text-cyan-400",
			Card:          "bg-slate-800",
			Border:        "border-slate-700",
			Header:        "bg-gradient-to-r from-cyan-500 to-blue-600",
			HeaderIcon:    "bg-cyan-500",
			Button:        "bg-cyan-500 hover:bg-cyan-600",
			ButtonHover:   "hover:bg-slate-700",
			NavActive:     "text-cyan-400",
			NavInactive:   "text-slate-500 hover:text-cyan-400",
		},
	},
	Dark: {
		ID:    Dark,
		Label: "黑色系",
		Icon:  "🌙",
		Dark:  true,
		Classes: Classes{
			Page:          "bg-gray-900",
			Text:          "text-gray-200",
			TextSecondary: "text-gray-400",
			Primary:       "text-gray-400",
			Card:          "bg-gray-800",
			Border:        "border-gray-700",
			Header:        "bg-gradient-to-r from-gray-800 to-gray-900",
			HeaderIcon:    "bg-gray-700",
			Button:        "bg-gray-700 hover:bg-gray-600",
			ButtonHover:   "hover:bg-gray-700",
			NavActive:     "text-gray-200",
			NavInactive:   "text-gray-500 hover:text-gray-300",
		},
	},
	Light: {
		ID:    Light,
		Label: "白色系",
		Icon:  "☀️",
		Classes: Classes{
			Page:          "bg-white",
			Text:          "text-gray-900",
			TextSecondary: "text-gray-600",
			Primary:       "text-gray-700",
			Card:          "bg-white",
			Border:        "border-gray-200",
			Header:        "bg-gradient-to-r from-gray-100 to-gray-200",
			HeaderIcon:    "bg-gray-300",
			Button:        "bg-gray-700 hover:bg-gray-800",
			ButtonHover:   "hover:bg-gray-100",
			NavActive:     "text-gray-900",
			NavInactive:   "text-gray-500 hover:text-gray-700",
		},
	},
}

// Parse validates a theme name.
func Parse(s string) (Name, error) {
	name := Name(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := themes[name]; !ok {
		return "", ErrUnknownTheme
	}
	return name, nil
}

// Get returns the theme, falling back to Default for unknown names.
func Get(name Name) Theme {
	t, ok := themes[name]
	if !ok {
		return themes[Default]
	}
	return t
}

// All returns every theme in display order.
func All() []Theme {
	out := make([]Theme, 0, len(order))
	for _, name := range order {
		out = append(out, themes[name])
	}
	return out
}

// Merge composes base classes with overrides; later conflicting utilities win.
func Merge(classes ...string) string {
	return twmerge.Merge(classes...)
}

func (t Theme) Body() string {
	return Merge("min-h-screen font-sans antialiased bg-white text-gray-900", t.Classes.Page, t.Classes.Text)
}

func (t Theme) Card() string {
	return Merge("rounded-2xl border shadow-sm p-4 bg-white border-gray-200", t.Classes.Card, t.Classes.Border)
}

func (t Theme) Button() string {
	return Merge("px-4 py-2 rounded-xl font-bold text-white transition-colors bg-gray-700", t.Classes.Button)
}

func (t Theme) Header() string {
	return Merge("px-4 py-3 text-white shadow", t.Classes.Header)
}
