package interchange

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/bookcase/pkg/config"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config) {
	interchangeService := NewService(db)

	h := &handler{
		interchangeService: interchangeService,
		maxUploadBytes:     cfg.ImportMaxUploadBytes,
	}

	e.GET("/your_libraries/export", h.export)
	e.POST("/your_libraries/import", h.importCSV)
}
