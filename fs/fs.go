// Package appfs exposes the repository's embedded static assets:
// database migrations and email templates.
package appfs

import "embed"

//go:embed migrations all:assets
var FS embed.FS
