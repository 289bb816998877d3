package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed sql/0003_create_challenge_items.up.sql
var createItemsUpSQL string

//go:embed sql/0003_create_challenge_items.down.sql
var createItemsDownSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createItemsUpSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createItemsDownSQL)
			return err
		},
	)
}
