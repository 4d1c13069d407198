package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [up migration] ")

		stmts := []string{
			"CREATE INDEX IF NOT EXISTS sequencing_runs_device_id_idx ON sequencing_runs (device_id)",
			"CREATE INDEX IF NOT EXISTS sample_sequencing_metrics_sequencing_run_id_idx ON sample_sequencing_metrics (sequencing_run_id)",
			"CREATE INDEX IF NOT EXISTS file_tags_tag_id_idx ON file_tags (tag_id)",
		}

		for _, stmt := range stmts {
			if _, err := db.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [down migration] ")

		stmts := []string{
			"DROP INDEX IF EXISTS file_tags_tag_id_idx",
			"DROP INDEX IF EXISTS sample_sequencing_metrics_sequencing_run_id_idx",
			"DROP INDEX IF EXISTS sequencing_runs_device_id_idx",
		}

		for _, stmt := range stmts {
			if _, err := db.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})
}
