package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`CREATE INDEX ix_library_books_library_id_genre_shelf ON library_books (library_id, genre_shelf)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_library_books_library_id_shelf_position ON library_books (library_id, shelf_position)`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`DROP INDEX IF EXISTS ix_library_books_library_id_genre_shelf`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`DROP INDEX IF EXISTS ix_library_books_library_id_shelf_position`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
