// Package migrations embeds the SQL schema migrations for the sqlite
// driver so the binary carries its own schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
