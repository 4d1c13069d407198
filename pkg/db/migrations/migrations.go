// Package migrations registers the schema migrations in file name order.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
