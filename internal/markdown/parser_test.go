package markdown

import (
	"strings"
	"testing"
)

func TestParseDocument(t *testing.T) {
	source := []byte(`---
title: Balance basics
order: 2
---
# Glide

Push, then **glide**.
`)

	var meta struct {
		Title string `yaml:"title"`
		Order int    `yaml:"order"`
	}

	html, err := NewParser().ParseDocument(source, &meta)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}

	if meta.Title != "Balance basics" || meta.Order != 2 {
		t.Errorf("meta = %+v", meta)
	}
	if !strings.Contains(string(html), `<h1 id="glide">Glide</h1>`) {
		t.Errorf("html missing heading: %s", html)
	}
	if !strings.Contains(string(html), "<strong>glide</strong>") {
		t.Errorf("html missing emphasis: %s", html)
	}
	if strings.Contains(string(html), "title:") {
		t.Errorf("front matter leaked into html: %s", html)
	}
}

func TestParseEscapesRawHTML(t *testing.T) {
	html, err := NewParser().Parse([]byte("<script>alert(1)</script>"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if strings.Contains(string(html), "<script>") {
		t.Errorf("raw html rendered: %s", html)
	}
}
