package ctxkeys

import (
	"context"

	"github.com/speedystriders/tracker/internal/config"
	"github.com/speedystriders/tracker/internal/prefs"
	"github.com/speedystriders/tracker/internal/session"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	SessionKey     contextKey = "session"
	PreferencesKey contextKey = "preferences"
	URLPathKey     contextKey = "url_path"
	ConfigKey      contextKey = "config"
	CSRFTokenKey   contextKey = "csrf_token"
)

// Session returns the browser session; nil outside the session middleware.
func Session(ctx context.Context) *session.Session {
	s, _ := ctx.Value(SessionKey).(*session.Session)
	return s
}

func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

func Preferences(ctx context.Context) prefs.Preferences {
	p, ok := ctx.Value(PreferencesKey).(prefs.Preferences)
	if !ok {
		return prefs.Defaults()
	}
	return p
}

func WithPreferences(ctx context.Context, p prefs.Preferences) context.Context {
	return context.WithValue(ctx, PreferencesKey, p)
}

func URLPath(ctx context.Context) string {
	path, _ := ctx.Value(URLPathKey).(string)
	return path
}

func WithURLPath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, URLPathKey, path)
}

func Config(ctx context.Context) *config.Config {
	cfg, _ := ctx.Value(ConfigKey).(*config.Config)
	return cfg
}

func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, ConfigKey, cfg)
}

func CSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(CSRFTokenKey).(string)
	return token
}

func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, CSRFTokenKey, token)
}
