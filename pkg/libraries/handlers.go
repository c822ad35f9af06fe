package libraries

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
	libraryService *Service
}

type listResponse struct {
	Libraries []*models.Library `json:"libraries"`
	Total     int               `json:"total"`
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	library := &models.Library{
		Name: params.Name,
		Tags: cleanTags(params.Tags),
	}

	err := h.libraryService.CreateLibrary(ctx, library)
	if err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("library created", logger.Data{"library_id": library.ID})

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Library '%s' created!", library.Name),
		"library": library,
	}))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	libraries, total, err := h.libraryService.ListLibrariesWithTotal(ctx, ListLibrariesOptions{})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, listResponse{libraries, total}))
}

func (h *handler) listFiltered(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListLibrariesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	libraries, total, err := h.libraryService.ListLibrariesWithTotal(ctx, ListLibrariesOptions{
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, listResponse{libraries, total}))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	library, err := h.libraryService.DeleteLibrary(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("library deleted", logger.Data{"library_id": id})

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Library '%s' deleted!", library.Name),
	}))
}

func cleanTags(tags []string) models.StringList {
	return models.ParseStringList(models.StringList(tags).String())
}
