package books

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/littlelibrary/server/pkg/auth"
	"github.com/littlelibrary/server/pkg/errcodes"
	"github.com/littlelibrary/server/pkg/libraries"
	"github.com/littlelibrary/server/pkg/models"
	"github.com/littlelibrary/server/pkg/recommendations"
	"github.com/littlelibrary/server/pkg/scans"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	bookService           *Service
	libraryService        *libraries.Service
	scanService           *scans.Service
	recommendationService *recommendations.Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveByID(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	ownerID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		found, err := h.bookService.Search(ctx, *params.Search)
		if err != nil {
			return errors.WithStack(err)
		}
		return errors.WithStack(c.JSON(http.StatusOK, found))
	}

	links, err := h.libraryService.List(ctx, ownerID, libraries.ListLinksOptions{
		Filter: params.Filter,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []*models.LibraryBook `json:"books"`
		Total int                   `json:"total"`
	}{links, len(links)}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()

	params := SearchBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	found, err := h.bookService.Search(ctx, params.Query)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, found))
}

func (h *handler) lookup(c echo.Context) error {
	ctx := c.Request().Context()

	params := LookupBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	if params.ISBN == "" && params.Title == "" {
		return errcodes.BadRequest("Either isbn or title is required.")
	}

	found, err := h.bookService.Lookup(ctx, params.ISBN, params.Title)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, found))
}

func (h *handler) scan(c echo.Context) error {
	ctx := c.Request().Context()

	ownerID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := scans.Request{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.scanService.Scan(ctx, params)
	if err != nil {
		return errors.WithStack(err)
	}

	isDuplicate, err := h.libraryService.HasISBN(ctx, ownerID, book.ISBN)
	if err != nil {
		return errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("scan resolved", logger.Data{
		"book_id":      book.ID,
		"isbn":         book.ISBN,
		"is_duplicate": isDuplicate,
	})

	return errors.WithStack(c.JSON(http.StatusOK, ScanResponse{Book: book, IsDuplicate: isDuplicate}))
}

func (h *handler) checkDuplicate(c echo.Context) error {
	ctx := c.Request().Context()

	ownerID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := CheckDuplicatePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	isDuplicate, err := h.libraryService.HasISBN(ctx, ownerID, params.ISBN)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, CheckDuplicateResponse{IsDuplicate: isDuplicate}))
}

func (h *handler) addByPayload(c echo.Context) error {
	ctx := c.Request().Context()

	ownerID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := AddToLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.ResolvePayload(ctx, params.Book.toBook())
	if err != nil {
		return errors.WithStack(err)
	}

	link, err := h.libraryService.Link(ctx, ownerID, book.ID, params.GenreShelf, params.AgeShelf)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, link))
}

func (h *handler) addByID(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	ownerID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := ShelvesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveByID(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	link, err := h.libraryService.Link(ctx, ownerID, book.ID, params.GenreShelf, params.AgeShelf)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, link))
}

func (h *handler) removeFromLibrary(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	ownerID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	if err := h.libraryService.Unlink(ctx, ownerID, id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) updateLibraryBook(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	ownerID, err := auth.MustUserID(c)
	if err != nil {
		return err
	}

	params := UpdateLibraryBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	link, err := h.libraryService.UpdateLink(ctx, ownerID, id, libraries.UpdateLinkOptions{
		IsFavorite:     params.IsFavorite,
		PersonalRating: params.PersonalRating,
		PersonalNotes:  params.PersonalNotes,
		MarkRead:       params.MarkRead,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, link))
}

func (h *handler) bookRecommendations(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveByID(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	result, err := h.recommendationService.Recommend(ctx, recommendations.Query{
		BookID: &book.ID,
		Title:  &book.Title,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, result))
}

// recommendationsByKey answers the key/value form of a recommendation query. A
// bare title is first resolved to the ISBN of its best catalog match.
func (h *handler) recommendationsByKey(c echo.Context) error {
	ctx := c.Request().Context()

	params := RecommendationsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	query := recommendations.Query{}
	if params.Title != "" {
		query.Title = &params.Title
	}

	switch {
	case params.By == "id" && params.Value != "":
		id, err := strconv.Atoi(params.Value)
		if err != nil || id < 1 {
			return errcodes.BadRequest("Value must be a book id.")
		}
		query.BookID = &id
	case params.By == "isbn" && params.Value != "":
		query.ISBN = &params.Value
	case params.By != "" && params.By != "id" && params.By != "isbn":
		return errcodes.BadRequest("By must be one of: id, isbn.")
	case params.Title != "":
		found, err := h.bookService.Lookup(ctx, "", params.Title)
		if err != nil {
			return errors.WithStack(err)
		}
		if len(found) == 0 || found[0].ISBN == "" {
			return errcodes.BadRequest("No book matches the given title.")
		}
		query.ISBN = &found[0].ISBN
	default:
		return errcodes.BadRequest("Either by and value or title is required.")
	}

	result, err := h.recommendationService.Recommend(ctx, query)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, result))
}

func (h *handler) queryRecommendations(c echo.Context) error {
	ctx := c.Request().Context()

	params := RecommendationQueryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	result, err := h.recommendationService.Recommend(ctx, params)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, result))
}
