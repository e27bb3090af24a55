// Package migrations embeds the goose SQL migrations for the sets schema so
// they can be applied by the `migrate` command and by integration tests.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
