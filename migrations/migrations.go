// Package migrations embeds the run-history schema migrations.
package migrations

import "embed"

// FS holds the golang-migrate numbered .up.sql and .down.sql files.
//
//go:embed *.sql
var FS embed.FS
