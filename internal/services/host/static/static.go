package static

import "embed"

// FS exposes host static assets for HTTP serving.
//
//go:embed *.css
var FS embed.FS
