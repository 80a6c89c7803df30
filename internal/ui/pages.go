package ui

import (
	"context"

	"github.com/speedystriders/tracker/internal/ctxkeys"
	"github.com/speedystriders/tracker/internal/theme"
)

type NavItem struct {
	Label string
	Icon  string
	Path  string
}

// MainNav is the bottom navigation of the app shell.
var MainNav = []NavItem{
	{Label: "紀錄", Icon: "⏱️", Path: "/"},
	{Label: "碼錶", Icon: "🏁", Path: "/stopwatch"},
	{Label: "歷史", Icon: "📋", Path: "/history"},
	{Label: "訓練", Icon: "💪", Path: "/training"},
	{Label: "分析", Icon: "📈", Path: "/analytics"},
	{Label: "課程", Icon: "🎓", Path: "/courses"},
}

func appName(ctx context.Context) string {
	if cfg := ctxkeys.Config(ctx); cfg != nil && cfg.AppName != "" {
		return cfg.AppName
	}
	return "Speedy Striders"
}

func currentTheme(ctx context.Context) theme.Theme {
	return theme.Get(ctxkeys.Preferences(ctx).Theme)
}

func isAdmin(ctx context.Context) bool {
	s := ctxkeys.Session(ctx)
	return s != nil && s.Admin
}

func navClass(t theme.Theme, item NavItem, path string) string {
	active := t.Classes.NavInactive
	if item.Path == path {
		active = t.Classes.NavActive
	}
	return theme.Merge("flex flex-col items-center text-xs", active)
}
