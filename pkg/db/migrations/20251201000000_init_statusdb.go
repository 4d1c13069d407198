package migrations

import (
	"context"
	"fmt"

	"github.com/quatton/qseq/pkg/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [up migration] ")

		_, err := db.NewCreateTable().
			Model((*models.RunDevice)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewCreateTable().
			Model((*models.SequencingRun)(nil)).
			IfNotExists().
			ForeignKey(`("device_id") REFERENCES "run_devices" ("id") ON DELETE CASCADE`).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewCreateTable().
			Model((*models.SampleSequencingMetrics)(nil)).
			IfNotExists().
			ForeignKey(`("sequencing_run_id") REFERENCES "sequencing_runs" ("id") ON DELETE CASCADE`).
			Exec(ctx)
		if err != nil {
			return err
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [down migration] ")

		for _, model := range []any{
			(*models.SampleSequencingMetrics)(nil),
			(*models.SequencingRun)(nil),
			(*models.RunDevice)(nil),
		} {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
