package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/littlelibrary/server/pkg/advisory"
	"github.com/littlelibrary/server/pkg/auth"
	"github.com/littlelibrary/server/pkg/binder"
	"github.com/littlelibrary/server/pkg/books"
	"github.com/littlelibrary/server/pkg/catalog"
	"github.com/littlelibrary/server/pkg/config"
	"github.com/littlelibrary/server/pkg/errcodes"
	"github.com/littlelibrary/server/pkg/libraries"
	"github.com/littlelibrary/server/pkg/lookupcache"
	"github.com/littlelibrary/server/pkg/metrics"
	"github.com/littlelibrary/server/pkg/ocr"
	"github.com/littlelibrary/server/pkg/recommendations"
	"github.com/littlelibrary/server/pkg/scans"
	"github.com/littlelibrary/server/pkg/users"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

// Collaborators are the external services the pipeline calls out to.
type Collaborators struct {
	Catalog    books.Catalog
	Recognizer scans.TextRecognizer
	Advisor    recommendations.Advisor
}

// NewCollaborators builds the production clients. The catalog shares the
// given lookup cache, which may be nil.
func NewCollaborators(cfg *config.Config, cache *lookupcache.Cache) Collaborators {
	return Collaborators{
		Catalog:    catalog.New(cfg, cache),
		Recognizer: ocr.New(cfg),
		Advisor:    advisory.New(cfg),
	}
}

func New(cfg *config.Config, db *bun.DB, collaborators Collaborators) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(metrics.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)
	e.GET("/metrics", metrics.Handler())

	userService := users.NewService(db)
	authMiddleware := auth.RegisterRoutes(e, userService, cfg.JWTSecret)

	libraryService := libraries.NewService(db, userService)
	libraries.RegisterRoutes(e, libraryService, authMiddleware)

	bookService := books.NewService(db, collaborators.Catalog)
	scanService := scans.NewService(collaborators.Recognizer, bookService)
	recommendationService := recommendations.NewService(bookService, collaborators.Catalog, collaborators.Advisor)

	booksGroup := e.Group("/books")
	booksGroup.Use(authMiddleware.Authenticate)
	books.RegisterRoutesWithGroup(booksGroup, bookService, libraryService, scanService, recommendationService)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
