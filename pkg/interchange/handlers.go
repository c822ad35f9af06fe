package interchange

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookcase/pkg/errcodes"
)

const (
	exportFilename = "libraries_export.csv"
	uploadField    = "file"
)

type handler struct {
	interchangeService *Service
	maxUploadBytes     int64
}

func (h *handler) export(c echo.Context) error {
	ctx := c.Request().Context()

	buf := &bytes.Buffer{}
	if err := h.interchangeService.Export(ctx, buf); err != nil {
		return errors.WithStack(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", exportFilename))
	return errors.WithStack(c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes()))
}

func (h *handler) importCSV(c echo.Context) error {
	ctx := c.Request().Context()
	req := c.Request()

	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return errcodes.ValidationError("No file part in the request.")
	}
	if h.maxUploadBytes > 0 {
		req.Body = http.MaxBytesReader(c.Response(), req.Body, h.maxUploadBytes)
	}

	// Bind params.
	params := ImportPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	header, ok := params.FormFiles[uploadField]
	if !ok || header.Filename == "" {
		return errcodes.ValidationError("No file part in the request.")
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		return errcodes.ValidationError("Invalid file type. Please upload a CSV file.")
	}

	file, err := header.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return errors.WithStack(err)
	}
	if !isText(mtype) {
		logger.FromContext(ctx).Warn("rejected csv upload", logger.Data{"filename": header.Filename, "mimetype": mtype.String()})
		return errcodes.ValidationError("Invalid file type. Please upload a CSV file.")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return errors.WithStack(err)
	}

	report, err := h.interchangeService.Import(ctx, file)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Import completed: %d books imported, %d rows skipped.", report.BooksImported, report.RowsSkipped),
		"report":  report,
	}))
}

// isText reports whether the detected type is plain text or derives from it,
// which covers text/csv.
func isText(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
