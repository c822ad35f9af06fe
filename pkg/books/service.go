package books

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/bookcase/pkg/database"
	"github.com/shishobooks/bookcase/pkg/errcodes"
	"github.com/shishobooks/bookcase/pkg/models"
	"github.com/uptrace/bun"
)

const (
	SortDateDesc  = "date_desc"
	SortDateAsc   = "date_asc"
	SortAlphaAsc  = "alpha_asc"
	SortAlphaDesc = "alpha_desc"
	// SortInsertion orders by id only. It isn't exposed over HTTP.
	SortInsertion = "insertion"
)

type RetrieveBookOptions struct {
	ID            *int
	LibraryID     *int
	GoogleBooksID *string
}

type ListBooksOptions struct {
	LibraryID *int
	Search    *string
	Genre     *string
	Rating    *int
	IsRead    *bool
	Sort      string

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// AddBook inserts book into its library unless the library already holds a
// book with the same Google Books ID. In that case book is overwritten with
// the stored row and created is false.
func (svc *Service) AddBook(ctx context.Context, book *models.Book) (bool, error) {
	created := false

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.
			NewSelect().
			Model((*models.Library)(nil)).
			Where("l.id = ?", book.LibraryID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("Library")
		}

		existing, err := findDuplicate(ctx, tx, book)
		if err != nil {
			return errors.WithStack(err)
		}
		if existing != nil {
			*book = *existing
			return nil
		}

		now := time.Now().UTC()
		if book.AddedAt.IsZero() {
			book.AddedAt = now
		}
		book.AddedAt = book.AddedAt.UTC()
		book.UpdatedAt = now
		normalizeLists(book)

		_, err = tx.
			NewInsert().
			Model(book).
			Returning("*").
			Exec(ctx)
		if err != nil {
			if !database.IsUniqueViolation(err) {
				return errors.WithStack(err)
			}
			// Lost a race with an identical add.
			existing, err := findDuplicate(ctx, tx, book)
			if err != nil {
				return errors.WithStack(err)
			}
			if existing == nil {
				return errors.New("unique violation without a matching book")
			}
			*book = *existing
			return nil
		}

		created = true
		return nil
	})
	if err != nil {
		return false, errors.WithStack(err)
	}

	return created, nil
}

// findDuplicate matches on the (google_books_id, library_id) pair. An empty
// catalog id is a value like any other.
func findDuplicate(ctx context.Context, db bun.IDB, book *models.Book) (*models.Book, error) {
	existing := &models.Book{}
	err := db.
		NewSelect().
		Model(existing).
		Where("b.google_books_id = ?", book.GoogleBooksID).
		Where("b.library_id = ?", book.LibraryID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	return existing, nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book).
		Relation("Library")

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.LibraryID != nil {
		q = q.Where("b.library_id = ?", *opts.LibraryID)
	}
	if opts.GoogleBooksID != nil {
		q = q.Where("b.google_books_id = ?", *opts.GoogleBooksID)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	if opts.LibraryID != nil {
		exists, err := svc.db.
			NewSelect().
			Model((*models.Library)(nil)).
			Where("l.id = ?", *opts.LibraryID).
			Exists(ctx)
		if err != nil {
			return nil, 0, errors.WithStack(err)
		}
		if !exists {
			return nil, 0, errcodes.NotFound("Library")
		}
	}

	q := svc.db.
		NewSelect().
		Model(&books)

	if opts.LibraryID != nil {
		q = q.Where("b.library_id = ?", *opts.LibraryID)
	}
	if opts.Search != nil && *opts.Search != "" {
		pattern := "%" + database.EscapeLike(strings.ToLower(*opts.Search)) + "%"
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("LOWER(b.title) LIKE ? ESCAPE '!'", pattern).
				WhereOr("LOWER(b.authors) LIKE ? ESCAPE '!'", pattern)
		})
	}
	if opts.Genre != nil && *opts.Genre != "" {
		// Match a whole element of the joined list, not a substring of one.
		pattern := "%" + models.ListSeparator + database.EscapeLike(strings.ToLower(*opts.Genre)) + models.ListSeparator + "%"
		q = q.Where("(? || LOWER(b.genres) || ?) LIKE ? ESCAPE '!'", models.ListSeparator, models.ListSeparator, pattern)
	}
	if opts.Rating != nil {
		q = q.Where("b.rating = ?", *opts.Rating)
	}
	if opts.IsRead != nil {
		q = q.Where("b.is_read = ?", *opts.IsRead)
	}

	switch opts.Sort {
	case SortInsertion:
	case SortDateAsc:
		q = q.Order("b.added_at ASC")
	case SortAlphaAsc:
		q = q.Order("b.title ASC")
	case SortAlphaDesc:
		q = q.Order("b.title DESC")
	default:
		q = q.Order("b.added_at DESC")
	}
	// Equal sort keys keep insertion order.
	q = q.Order("b.id ASC")

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

// DeleteBook deletes the book only if it belongs to libraryID.
func (svc *Service) DeleteBook(ctx context.Context, libraryID, bookID int) (*models.Book, error) {
	book := &models.Book{}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.
			NewSelect().
			Model(book).
			Where("b.id = ?", bookID).
			Where("b.library_id = ?", libraryID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}

		_, err = tx.
			NewDelete().
			Model(book).
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	// Update updated_at.
	book.UpdatedAt = time.Now().UTC()
	columns := append(opts.Columns, "updated_at")
	normalizeLists(book)

	res, err := svc.db.
		NewUpdate().
		Model(book).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errcodes.NotFound("Book")
	}

	return nil
}

func (svc *Service) UpdateTags(ctx context.Context, id int, tags models.StringList) (*models.Book, error) {
	return svc.updateField(ctx, id, "tags", func(book *models.Book) {
		book.Tags = tags
	})
}

func (svc *Service) UpdateReadStatus(ctx context.Context, id int, isRead bool) (*models.Book, error) {
	return svc.updateField(ctx, id, "is_read", func(book *models.Book) {
		book.IsRead = isRead
	})
}

func (svc *Service) UpdateRating(ctx context.Context, id int, rating int) (*models.Book, error) {
	if !models.ValidRating(rating) {
		return nil, errcodes.ValidationError(`"rating" must be between 1 and 5`)
	}
	return svc.updateField(ctx, id, "rating", func(book *models.Book) {
		book.Rating = rating
	})
}

func (svc *Service) UpdateThumbnail(ctx context.Context, id int, thumbnail string) (*models.Book, error) {
	return svc.updateField(ctx, id, "thumbnail", func(book *models.Book) {
		book.Thumbnail = thumbnail
	})
}

func (svc *Service) updateField(ctx context.Context, id int, column string, set func(*models.Book)) (*models.Book, error) {
	book, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	set(book)
	if err := svc.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{column}}); err != nil {
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func normalizeLists(book *models.Book) {
	if book.Authors == nil {
		book.Authors = models.StringList{}
	}
	if book.Genres == nil {
		book.Genres = models.StringList{}
	}
	if book.Tags == nil {
		book.Tags = models.StringList{}
	}
}
