// Package web holds the geovisor page, its Datastar fragments and static assets.
package web

import "embed"

// FS contains templates/ and static/.
//
//go:embed templates static
var FS embed.FS
