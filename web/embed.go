// Package web embeds the budget page templates and static assets.
package web

import "embed"

// TemplatesFS holds the page and partial templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and keyboard script.
//
//go:embed static/*
var StaticFS embed.FS
