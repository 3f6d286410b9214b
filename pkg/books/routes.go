package books

import (
	"github.com/labstack/echo/v4"
	"github.com/littlelibrary/server/pkg/binder"
	"github.com/littlelibrary/server/pkg/libraries"
	"github.com/littlelibrary/server/pkg/recommendations"
	"github.com/littlelibrary/server/pkg/scans"
)

// RegisterRoutesWithGroup registers book routes on a pre-configured group.
// The group is expected to authenticate every request.
func RegisterRoutesWithGroup(g *echo.Group, bookService *Service, libraryService *libraries.Service, scanService *scans.Service, recommendationService *recommendations.Service) {
	h := &handler{
		bookService:           bookService,
		libraryService:        libraryService,
		scanService:           scanService,
		recommendationService: recommendationService,
	}

	g.GET("", h.list)
	g.GET("/search", h.search)
	g.GET("/lookup", h.lookup)
	g.POST("/scan", h.scan)
	g.POST("/check-duplicate", h.checkDuplicate)
	g.POST("/add-to-library", h.addByPayload)
	g.GET("/recommendations", h.recommendationsByKey)
	g.POST("/recommendations/query", h.queryRecommendations)

	g.GET("/:id", h.retrieve)
	g.POST("/:id/add-to-library", h.addByID, binder.AllowEmptyBody)
	g.DELETE("/:id/remove-from-library", h.removeFromLibrary)
	g.POST("/:id/library", h.updateLibraryBook)
	g.GET("/:id/recommendations", h.bookRecommendations)
}
