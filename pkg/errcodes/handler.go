package errcodes

import (
	"fmt"
	"net/http"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"
)

// Payload is the body of every error response.
type Payload struct {
	Error PayloadError `json:"error"`
}

type PayloadError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Handle is the echo error handler. *Error values keep their status and
// code, echo errors get a snake_cased code from their message, and anything
// else is an internal server error.
func (h *Handler) Handle(err error, c echo.Context) {
	log := logger.FromEchoContext(c)

	if errutils.IsIgnorableErr(err) {
		log.Err(err).Warn("broken pipe")
		return
	}
	if c.Response().Committed {
		log.Err(err).Warn("error after response was written")
		return
	}

	payload := NewPayload(err)
	switch status := payload.Error.StatusCode; {
	case status == http.StatusInternalServerError:
		log.Err(err).Error("server error")
	case status >= http.StatusInternalServerError:
		log.Err(err).Warn("upstream error")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(payload.Error.StatusCode)
	} else {
		err = c.JSON(payload.Error.StatusCode, payload)
	}
	if err != nil {
		log.Err(errors.WithStack(err)).Error("error handler json error")
	}
}

// NewPayload renders err the way Handle sends it.
func NewPayload(err error) Payload {
	out := PayloadError{StatusCode: http.StatusInternalServerError}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		out.StatusCode = he.Code
		if msg, ok := he.Message.(string); ok {
			out.Message = msg
		} else {
			out.Message = fmt.Sprint(he.Message)
		}
		out.Code = strcase.ToSnake(out.Message)
	}

	var e *Error
	if errors.As(err, &e) {
		out.StatusCode = e.HTTPCode
		out.Code = e.Code
		out.Message = e.Message
	}

	if out.StatusCode == http.StatusInternalServerError && out.Message == "" {
		out.Code = "internal_server_error"
		out.Message = "Internal Server Error"
	}

	return Payload{out}
}
