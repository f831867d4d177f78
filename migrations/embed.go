// Package migrations embeds the SQLite schema so the binary and tests share it.
package migrations

import "embed"

// FS holds the numbered .sql migration files.
//
//go:embed *.sql
var FS embed.FS
