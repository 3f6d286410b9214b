package errcodes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"domain error", UnidentifiableScan(), http.StatusUnprocessableEntity, CodeUnidentifiableScan},
		{"wrapped domain error", errors.WithStack(BookNotFound("9780439708180")), http.StatusNotFound, CodeBookNotFound},
		{"upstream failure", ExternalServiceUnavailable("Book catalog"), http.StatusServiceUnavailable, CodeExternalServiceUnavailable},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"), http.StatusMethodNotAllowed, "method_not_allowed"},
		{"echo error without string message", echo.NewHTTPError(http.StatusTeapot, 42), http.StatusTeapot, "42"},
		{"anything else", errors.New("boom"), http.StatusInternalServerError, "internal_server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewPayload(tt.err)
			assert.Equal(t, tt.status, p.Error.StatusCode)
			assert.Equal(t, tt.code, p.Error.Code)
			assert.NotEmpty(t, p.Error.Message)
		})
	}
}

func TestHandler_Handle(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/books/scan", nil)
	rr := httptest.NewRecorder()
	c := e.NewContext(req, rr)

	NewHandler().Handle(MissingISBN(), c)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var body Payload
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, CodeMissingISBN, body.Error.Code)
	assert.Equal(t, "ISBN is required.", body.Error.Message)
	assert.Equal(t, http.StatusUnprocessableEntity, body.Error.StatusCode)
}

func TestHandler_HandleHead(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodHead, "/books/1", nil)
	rr := httptest.NewRecorder()
	c := e.NewContext(req, rr)

	NewHandler().Handle(NotFound("Book"), c)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, rr.Body.String())
}
