package web

import "embed"

// TemplatesFS embeds the page and screen templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS embeds the stylesheet and the swipe script.
//
//go:embed static/*
var StaticFS embed.FS
