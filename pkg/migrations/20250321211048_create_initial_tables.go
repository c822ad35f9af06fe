package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE libraries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				tags TEXT NOT NULL DEFAULT ''
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		// Case-insensitive unique constraint
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_libraries_name ON libraries (name COLLATE NOCASE)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE books (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				added_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				library_id INTEGER REFERENCES libraries (id) NOT NULL,
				google_books_id TEXT NOT NULL DEFAULT '',
				title TEXT NOT NULL DEFAULT '',
				authors TEXT NOT NULL DEFAULT '',
				genres TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				thumbnail TEXT NOT NULL DEFAULT '',
				tags TEXT NOT NULL DEFAULT '',
				publisher TEXT NOT NULL DEFAULT '',
				published_date TEXT NOT NULL DEFAULT '',
				page_count INTEGER NOT NULL DEFAULT 0,
				isbn TEXT NOT NULL DEFAULT '',
				is_read BOOLEAN NOT NULL DEFAULT FALSE,
				rating INTEGER NOT NULL DEFAULT 0 CHECK (rating BETWEEN 0 AND 5)
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_books_library_id ON books (library_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_books_google_books_id_library_id ON books (google_books_id, library_id)`)
		if err != nil {
			return errors.WithStack(err)
		}

		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("DROP TABLE IF EXISTS books")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec("DROP TABLE IF EXISTS libraries")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
