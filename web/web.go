// Package web embeds the server's HTML templates and static assets.
package web

import "embed"

// Templates holds the page templates. Every page defines a "content" block
// rendered inside layout.html.
//
//go:embed templates/*.html
var Templates embed.FS

// Static holds stylesheets served under /static/.
//
//go:embed static/*
var Static embed.FS
