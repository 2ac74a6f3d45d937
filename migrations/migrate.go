// Schema for the reminder job store
package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Migrate applies every pending migration in order, stopping at the first failure
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	for i, m := range miglist {
		done, err := m.done(ctx, pool)

		if err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}

		if done {
			logger.Debug("Migration already applied", zap.String("name", m.name))
			continue
		}

		logger.Info("Running migration", zap.String("name", m.name), zap.Int("step", i+1), zap.Int("total", len(miglist)))

		if err := m.fn(ctx, pool); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}

	return nil
}
