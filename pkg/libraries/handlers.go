package libraries

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/littlelibrary/server/pkg/auth"
	"github.com/pkg/errors"
)

type handler struct {
	libraryService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	ownerID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	summary, err := h.libraryService.Summarize(ctx, ownerID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, summary))
}
