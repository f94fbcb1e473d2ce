// Package web embeds the dashboard page and its assets.
package web

import "embed"

// TemplatesFS holds the server-rendered dashboard page.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the dashboard script and stylesheet.
//
//go:embed static/*
var StaticFS embed.FS
