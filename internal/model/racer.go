package model

// DefaultAvatarColor is the first palette entry.
const DefaultAvatarColor = "bg-red-500"

// AvatarColors are the Tailwind tokens a racer can pick, in palette order.
var AvatarColors = []string{
	"bg-red-500",
	"bg-orange-500",
	"bg-amber-500",
	"bg-green-500",
	"bg-emerald-500",
	"bg-teal-500",
	"bg-cyan-500",
	"bg-sky-500",
	"bg-blue-500",
	"bg-indigo-500",
	"bg-violet-500",
	"bg-purple-500",
	"bg-fuchsia-500",
	"bg-pink-500",
	"bg-rose-500",
}

// Racer is a child athlete. Password holds a bcrypt hash (or a legacy
// plaintext value written by older clients) and never leaves the server.
type Racer struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	AvatarColor     string `json:"avatarColor"`
	Avatar          string `json:"avatar,omitempty"`
	CreatedAt       int64  `json:"createdAt"`
	Password        string `json:"password,omitempty"`
	RequirePassword bool   `json:"requirePassword,omitempty"`
	IsPublic        bool   `json:"isPublic,omitempty"`
}

// Gated reports whether selecting or modifying the racer needs the password.
func (r *Racer) Gated() bool {
	return r.RequirePassword && r.Password != ""
}

func ValidAvatarColor(color string) bool {
	for _, c := range AvatarColors {
		if c == color {
			return true
		}
	}
	return false
}
