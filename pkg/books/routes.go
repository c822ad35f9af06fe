package books

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// ThumbnailFetcher looks up the current cover image for a catalog id.
type ThumbnailFetcher interface {
	Thumbnail(ctx context.Context, googleBooksID string) (string, error)
}

func RegisterRoutes(e *echo.Echo, db *bun.DB, thumbnails ThumbnailFetcher) {
	bookService := NewService(db)

	h := &handler{
		bookService: bookService,
		thumbnails:  thumbnails,
	}

	e.POST("/library/:id/add", h.add, allowUnknownFields)
	e.GET("/library/:id/books", h.list)
	e.DELETE("/library/:id/books/:bookId", h.delete)
	e.POST("/book/:id/tags", h.updateTags)
	e.POST("/book/:id/update_status", h.updateStatus)
	e.POST("/book/:id/update_rating", h.updateRating)
	e.POST("/book/:id/refresh_image", h.refreshImage)
}

// allowUnknownFields lets clients post whole search results, extra keys
// included.
func allowUnknownFields(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set("disallow_unknown_fields", false)
		return next(c)
	}
}
