package interchange

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookcase/pkg/books"
	"github.com/shishobooks/bookcase/pkg/errcodes"
	"github.com/shishobooks/bookcase/pkg/libraries"
	"github.com/shishobooks/bookcase/pkg/models"
	"github.com/uptrace/bun"
)

const (
	ColLibraryName   = "Library Name"
	ColGoogleBooksID = "Google Books ID"
	ColISBN          = "ISBN"
	ColTitle         = "Title"
	ColAuthors       = "Authors"
	ColGenres        = "Genres"
	ColPublisher     = "Publisher"
	ColPublishedDate = "Published Date"
	ColPageCount     = "Page Count"
	ColTags          = "Tags"
	ColDescription   = "Description"
	ColThumbnail     = "Thumbnail"
	ColDateAdded     = "Date Added"
	ColIsRead        = "Is Read"
	ColRating        = "Rating"

	// legacyColGoogleBooksID is the catalog id header written by the first
	// export format.
	legacyColGoogleBooksID = "Book ID"

	// DateFormat is the layout of the Date Added column, always in UTC.
	DateFormat = "2006-01-02 15:04:05"
)

// Columns is the header row of an export, in order.
var Columns = []string{
	ColLibraryName,
	ColGoogleBooksID,
	ColISBN,
	ColTitle,
	ColAuthors,
	ColGenres,
	ColPublisher,
	ColPublishedDate,
	ColPageCount,
	ColTags,
	ColDescription,
	ColThumbnail,
	ColDateAdded,
	ColIsRead,
	ColRating,
}

type ImportReport struct {
	ImportID         string `json:"import_id"`
	RowsRead         int    `json:"rows_read"`
	BooksImported    int    `json:"books_imported"`
	RowsSkipped      int    `json:"rows_skipped"`
	LibrariesCreated int    `json:"libraries_created"`
}

type Service struct {
	libraryService *libraries.Service
	bookService    *books.Service
}

func NewService(db *bun.DB) *Service {
	return &Service{
		libraryService: libraries.NewService(db),
		bookService:    books.NewService(db),
	}
}

// Export writes every book of every library as CSV. Libraries come in id
// order and books in insertion order within each library.
func (svc *Service) Export(ctx context.Context, w io.Writer) error {
	libs, err := svc.libraryService.ListLibraries(ctx, libraries.ListLibrariesOptions{})
	if err != nil {
		return errors.WithStack(err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return errors.WithStack(err)
	}

	for _, library := range libs {
		libraryBooks, err := svc.bookService.ListBooks(ctx, books.ListBooksOptions{
			LibraryID: &library.ID,
			Sort:      books.SortInsertion,
		})
		if err != nil {
			return errors.WithStack(err)
		}

		for _, book := range libraryBooks {
			if err := writer.Write(exportRow(library, book)); err != nil {
				return errors.WithStack(err)
			}
		}
	}

	writer.Flush()
	return errors.WithStack(writer.Error())
}

func exportRow(library *models.Library, book *models.Book) []string {
	return []string{
		library.Name,
		book.GoogleBooksID,
		book.ISBN,
		book.Title,
		book.Authors.String(),
		book.Genres.String(),
		book.Publisher,
		book.PublishedDate,
		strconv.Itoa(book.PageCount),
		book.Tags.String(),
		book.Description,
		book.Thumbnail,
		book.AddedAt.UTC().Format(DateFormat),
		strconv.FormatBool(book.IsRead),
		strconv.Itoa(book.Rating),
	}
}

// Import reads CSV rows and adds each one as a book, creating libraries by
// name as they are first seen. Bad rows are skipped and counted; only an
// unreadable header aborts the import.
func (svc *Service) Import(ctx context.Context, r io.Reader) (*ImportReport, error) {
	log := logger.FromContext(ctx)
	report := &ImportReport{ImportID: uuid.New().String()}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return report, nil
		}
		log.Err(err).Warn("unreadable csv header", logger.Data{"import_id": report.ImportID})
		return nil, errcodes.ValidationError("Unable to read the CSV header.")
	}
	idx := indexColumns(header)

	now := time.Now().UTC()
	libraryCache := map[string]*models.Library{}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		report.RowsRead++
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				log.Warn("skipping malformed csv row", logger.Data{"import_id": report.ImportID, "line": pe.Line, "error": pe.Err.Error()})
				report.RowsSkipped++
				continue
			}
			return nil, errors.WithStack(err)
		}

		rec := row{record, idx}
		name := strings.TrimSpace(rec.get(ColLibraryName))
		if name == "" {
			report.RowsSkipped++
			continue
		}

		library, created, err := svc.resolveLibrary(ctx, name, libraryCache)
		if err != nil {
			log.Err(err).Warn("skipping row with unusable library", logger.Data{"import_id": report.ImportID, "row": report.RowsRead, "library": name})
			report.RowsSkipped++
			continue
		}
		if created {
			report.LibrariesCreated++
		}

		added, err := svc.bookService.AddBook(ctx, rec.book(library.ID, now))
		if err != nil {
			log.Err(err).Warn("skipping row that could not be stored", logger.Data{"import_id": report.ImportID, "row": report.RowsRead})
			report.RowsSkipped++
			continue
		}
		if !added {
			report.RowsSkipped++
			continue
		}
		report.BooksImported++
	}

	log.Info("csv import finished", logger.Data{
		"import_id":         report.ImportID,
		"rows_read":         report.RowsRead,
		"books_imported":    report.BooksImported,
		"rows_skipped":      report.RowsSkipped,
		"libraries_created": report.LibrariesCreated,
	})

	return report, nil
}

// resolveLibrary finds a library by name, ignoring case, or creates it. A
// created library is committed right away so later rows can reuse it.
func (svc *Service) resolveLibrary(ctx context.Context, name string, cache map[string]*models.Library) (*models.Library, bool, error) {
	key := strings.ToLower(name)
	if library, ok := cache[key]; ok {
		return library, false, nil
	}

	library, err := svc.libraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{Name: &name})
	if err == nil {
		cache[key] = library
		return library, false, nil
	}
	if !errors.Is(err, errcodes.NotFound("")) {
		return nil, false, errors.WithStack(err)
	}

	library = &models.Library{Name: name}
	err = svc.libraryService.CreateLibrary(ctx, library)
	if err != nil {
		if !errors.Is(err, errcodes.Duplicate("")) {
			return nil, false, errors.WithStack(err)
		}
		// Created concurrently by another request.
		library, err = svc.libraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{Name: &name})
		if err != nil {
			return nil, false, errors.WithStack(err)
		}
		cache[key] = library
		return library, false, nil
	}

	cache[key] = library
	return library, true, nil
}

func indexColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	if _, ok := idx[ColGoogleBooksID]; !ok {
		if i, ok := idx[legacyColGoogleBooksID]; ok {
			idx[ColGoogleBooksID] = i
		}
	}
	return idx
}

type row struct {
	record []string
	idx    map[string]int
}

func (r row) get(col string) string {
	i, ok := r.idx[col]
	if !ok || i >= len(r.record) {
		return ""
	}
	return r.record[i]
}

func (r row) book(libraryID int, now time.Time) *models.Book {
	return &models.Book{
		LibraryID:     libraryID,
		GoogleBooksID: strings.TrimSpace(r.get(ColGoogleBooksID)),
		ISBN:          strings.TrimSpace(r.get(ColISBN)),
		Title:         r.get(ColTitle),
		Authors:       models.ParseStringList(r.get(ColAuthors)),
		Genres:        models.ParseStringList(r.get(ColGenres)),
		Publisher:     r.get(ColPublisher),
		PublishedDate: r.get(ColPublishedDate),
		PageCount:     parsePageCount(r.get(ColPageCount)),
		Tags:          models.ParseStringList(r.get(ColTags)),
		Description:   r.get(ColDescription),
		Thumbnail:     r.get(ColThumbnail),
		AddedAt:       parseDateAdded(r.get(ColDateAdded), now),
		IsRead:        parseIsRead(r.get(ColIsRead)),
		Rating:        parseRating(r.get(ColRating)),
	}
}

func parseDateAdded(s string, now time.Time) time.Time {
	t, err := time.ParseInLocation(DateFormat, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return now
	}
	return t
}

// parseRating returns 0 (unrated) for anything that isn't an integer in 0..5.
func parseRating(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > models.MaxRating {
		return 0
	}
	return n
}

func parseIsRead(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

func parsePageCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
