package libraries

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB) {
	libraryService := NewService(db)

	h := &handler{
		libraryService: libraryService,
	}

	e.POST("/library", h.create)
	e.GET("/libraries", h.list)
	e.GET("/your_libraries", h.listFiltered)
	e.DELETE("/library/:id", h.delete)
}
