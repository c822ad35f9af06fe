package books

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookcase/pkg/errcodes"
	"github.com/shishobooks/bookcase/pkg/models"
)

type handler struct {
	bookService *Service
	thumbnails  ThumbnailFetcher
}

type listResponse struct {
	Books []*models.Book `json:"books"`
	Total int            `json:"total"`
}

func (h *handler) add(c echo.Context) error {
	ctx := c.Request().Context()
	libraryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	// Bind params.
	params := AddBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book := &models.Book{
		LibraryID:     libraryID,
		GoogleBooksID: params.catalogID(),
		Title:         params.Title,
		Authors:       models.StringList(params.Authors),
		Genres:        models.StringList(params.Genres),
		Description:   params.Description,
		Thumbnail:     params.Thumbnail,
		Publisher:     params.Publisher,
		PublishedDate: params.PublishedDate,
		PageCount:     params.PageCount,
		ISBN:          params.ISBN,
	}

	created, err := h.bookService.AddBook(ctx, book)
	if err != nil {
		return errors.WithStack(err)
	}

	book, err = h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	if err != nil {
		return errors.WithStack(err)
	}

	if !created {
		return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
			"message": "Book already exists in the library.",
			"book":    book,
		}))
	}

	logger.FromContext(ctx).Info("book added", logger.Data{"book_id": book.ID, "library_id": libraryID})

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Book '%s' added to library '%s'!", book.Title, book.Library.Name),
		"book":    book,
	}))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	libraryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	// Bind params.
	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		LibraryID: &libraryID,
		Search:    params.Search,
		Genre:     params.Genre,
		Rating:    params.Rating,
		IsRead:    params.Read,
		Sort:      params.Sort,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, listResponse{books, total}))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	libraryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}
	bookID, err := strconv.Atoi(c.Param("bookId"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.DeleteBook(ctx, libraryID, bookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Book '%s' deleted from library.", book.Title),
	}))
}

func (h *handler) updateTags(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	// Bind params.
	params := UpdateTagsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.UpdateTags(ctx, id, models.StringList(params.Tags))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Tags updated successfully.",
		"book":    book,
	}))
}

func (h *handler) updateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	// Bind params.
	params := UpdateStatusPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.UpdateReadStatus(ctx, id, *params.IsRead)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Read status updated successfully.",
		"book":    book,
	}))
}

func (h *handler) updateRating(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	// Bind params.
	params := UpdateRatingPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.UpdateRating(ctx, id, *params.Rating)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Rating updated successfully.",
		"book":    book,
	}))
}

func (h *handler) refreshImage(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}
	if book.GoogleBooksID == "" {
		return errcodes.ValidationError("Book has no Google Books ID to refresh from.")
	}

	thumbnail, err := h.thumbnails.Thumbnail(ctx, book.GoogleBooksID)
	if err != nil {
		return errors.WithStack(err)
	}

	book, err = h.bookService.UpdateThumbnail(ctx, id, thumbnail)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"message":   "Thumbnail refreshed successfully.",
		"thumbnail": thumbnail,
		"book":      book,
	}))
}
