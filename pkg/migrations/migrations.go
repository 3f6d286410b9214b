package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations holds every schema migration, registered from init funcs.
var Migrations = migrate.NewMigrations()

// BringUpToDate applies all pending migrations under the migration lock, so
// two processes starting against the same database file can't both migrate.
// The returned group is zero when nothing was pending.
func BringUpToDate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := migrator.Lock(ctx); err != nil {
		return nil, errors.Wrap(err, "acquire migration lock")
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return group, nil
}
