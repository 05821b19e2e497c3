// Package migrations embeds the goose SQL migrations. Statements stay
// portable: the same files run on PostgreSQL and SQLite.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
