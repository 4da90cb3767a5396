// Package web carries the embedded templates and static assets so the
// binaries ship self-contained.
package web

import "embed"

// Templates holds the layout, partial and page templates.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static holds the stylesheet and other public assets served under /static/.
//
//go:embed static/**/*
var Static embed.FS
