// Package dbtest opens a migrated in-memory database for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/quatton/qseq/pkg/db"
	"github.com/quatton/qseq/pkg/qlog"
	"github.com/uptrace/bun"
)

func New(t testing.TB) *bun.DB {
	t.Helper()
	ctx := context.Background()

	database, err := db.NewSQLite(ctx, "file::memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := db.Migrate(ctx, database, qlog.NewQuiet()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database
}

// Count returns the number of rows of model's table.
func Count(t testing.TB, database bun.IDB, model any) int {
	t.Helper()
	n, err := database.NewSelect().Model(model).Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
