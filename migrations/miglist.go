package migrations

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var miglist = []migrator{
	{
		name: "create_reminder_jobs",
		done: func(ctx context.Context, pool *pgxpool.Pool) (bool, error) {
			return tableExists(ctx, pool, "reminder_jobs")
		},
		fn: func(ctx context.Context, pool *pgxpool.Pool) error {
			_, err := pool.Exec(ctx, `CREATE TABLE reminder_jobs (
				owner_id TEXT PRIMARY KEY,
				hour INTEGER NOT NULL CHECK (hour >= 0 AND hour < 24),
				minute INTEGER NOT NULL CHECK (minute >= 0 AND minute < 60)
			)`)
			return err
		},
	},
	{
		name: "add_reminder_jobs_updated_at",
		done: func(ctx context.Context, pool *pgxpool.Pool) (bool, error) {
			return colExists(ctx, pool, "reminder_jobs", "updated_at")
		},
		fn: func(ctx context.Context, pool *pgxpool.Pool) error {
			_, err := pool.Exec(ctx, "ALTER TABLE reminder_jobs ADD COLUMN updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()")
			return err
		},
	},
}
