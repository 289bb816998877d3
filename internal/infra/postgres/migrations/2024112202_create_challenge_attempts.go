package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

//go:embed sql/0002_create_challenge_attempts.up.sql
var createAttemptsUpSQL string

//go:embed sql/0002_create_challenge_attempts.down.sql
var createAttemptsDownSQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createAttemptsUpSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createAttemptsDownSQL)
			return err
		},
	)
}
