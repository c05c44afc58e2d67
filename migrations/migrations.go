// Package migrations embeds the per-company schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
