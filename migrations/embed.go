// Package migrations embeds the SQL schema migrations into the binary.
//
//	db.Migrate(ctx, migrations.FS, migrations.Dir)
package migrations

import "embed"

// FS holds every *.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS

// Dir is the directory within FS that holds the migration files.
const Dir = "."
