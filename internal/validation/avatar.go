package validation

import (
	"errors"
	"net/url"
	"strings"
)

// maxInlineAvatar bounds data URI avatars stored inside the racer document.
const maxInlineAvatar = 2 << 20

// AvatarPathPrefix marks avatars stored in object storage and served by the app.
const AvatarPathPrefix = "/avatars/"

// ValidateAvatar accepts an empty value, an image data URI, an http(s) URL
// or an uploaded avatar path.
func ValidateAvatar(avatar string) error {
	switch {
	case avatar == "":
		return nil
	case strings.HasPrefix(avatar, "data:image/"):
		if len(avatar) > maxInlineAvatar {
			return errors.New("avatar image is too large (max 2 MB)")
		}
		return nil
	case strings.HasPrefix(avatar, AvatarPathPrefix):
		if strings.Contains(avatar, "..") {
			return errors.New("invalid avatar path")
		}
		return nil
	}

	u, err := url.Parse(avatar)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("avatar must be an image URL or data URI")
	}
	return nil
}
