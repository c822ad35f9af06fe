package catalog

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	client *Client
}

func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := SearchQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	entries, err := h.client.Search(ctx, params.Q)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Results []*CatalogEntry `json:"results"`
		Total   int             `json:"total"`
	}{entries, len(entries)}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
