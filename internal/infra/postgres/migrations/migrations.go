// Package migrations holds the Postgres schema, applied with bun/migrate.
// Each file registers one step; bun takes the version from the file name.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
