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
			Model((*models.Bundle)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewCreateTable().
			Model((*models.File)(nil)).
			IfNotExists().
			ForeignKey(`("bundle_id") REFERENCES "bundles" ("id") ON DELETE CASCADE`).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewCreateTable().
			Model((*models.Tag)(nil)).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = db.NewCreateTable().
			Model((*models.FileTag)(nil)).
			IfNotExists().
			ForeignKey(`("file_id") REFERENCES "files" ("id") ON DELETE CASCADE`).
			ForeignKey(`("tag_id") REFERENCES "tags" ("id") ON DELETE CASCADE`).
			Exec(ctx)
		if err != nil {
			return err
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Print(" [down migration] ")

		for _, model := range []any{
			(*models.FileTag)(nil),
			(*models.Tag)(nil),
			(*models.File)(nil),
			(*models.Bundle)(nil),
		} {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
