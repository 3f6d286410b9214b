package libraries

import (
	"github.com/labstack/echo/v4"
	"github.com/littlelibrary/server/pkg/auth"
)

func RegisterRoutes(e *echo.Echo, libraryService *Service, authMiddleware *auth.Middleware) {
	h := &handler{
		libraryService: libraryService,
	}

	e.GET("/library", h.retrieve, authMiddleware.Authenticate)
}
