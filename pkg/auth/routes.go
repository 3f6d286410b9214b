package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/littlelibrary/server/pkg/users"
)

// RegisterRoutes registers all auth routes and returns the middleware that
// the other route groups authenticate with.
func RegisterRoutes(e *echo.Echo, userService *users.Service, jwtSecret string) *Middleware {
	authService := NewService(userService, jwtSecret)
	authMiddleware := NewMiddleware(authService)

	h := &handler{
		authService: authService,
	}

	auth := e.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.POST("/logout", h.logout)
	auth.GET("/me", h.me, authMiddleware.Authenticate)

	return authMiddleware
}
