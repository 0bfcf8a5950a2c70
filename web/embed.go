// Package web holds the dashboard's embedded templates and static assets.
package web

import "embed"

// Templates holds layouts, partials and pages under templates/.
//
//go:embed templates
var Templates embed.FS

// Static holds the stylesheet, script and images served under /static/.
//
//go:embed static
var Static embed.FS
