package libraries

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/littlelibrary/server/pkg/database"
	"github.com/littlelibrary/server/pkg/errcodes"
	"github.com/littlelibrary/server/pkg/identifiers"
	"github.com/littlelibrary/server/pkg/models"
	"github.com/littlelibrary/server/pkg/users"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type ListLinksOptions struct {
	Filter *string
}

type UpdateLinkOptions struct {
	IsFavorite     *bool
	PersonalRating *int
	PersonalNotes  *string
	MarkRead       bool
}

type Service struct {
	db          *bun.DB
	userService *users.Service
}

func NewService(db *bun.DB, userService *users.Service) *Service {
	return &Service{db, userService}
}

// EnsureLibrary returns the owner's library, creating the default one (and
// a placeholder owner when the owner row is missing) if there isn't one yet.
func (svc *Service) EnsureLibrary(ctx context.Context, ownerID int) (*models.Library, error) {
	var library *models.Library
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		library, err = svc.ensureLibrary(ctx, tx, ownerID)
		return err
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return library, nil
}

func (svc *Service) ensureLibrary(ctx context.Context, tx bun.Tx, ownerID int) (*models.Library, error) {
	library, err := findLibrary(ctx, tx, ownerID)
	if err == nil {
		return library, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if _, err := svc.userService.EnsureExists(ctx, tx, ownerID); err != nil {
		return nil, err
	}

	now := time.Now()
	library = &models.Library{
		CreatedAt: now,
		UpdatedAt: now,
		OwnerID:   ownerID,
		Name:      models.DefaultLibraryName,
	}
	_, err = tx.NewInsert().
		Model(library).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	logger.FromContext(ctx).Info("created default library", logger.Data{"owner_id": ownerID, "library_id": library.ID})

	return library, nil
}

// findLibrary returns the owner's first library. A missing library is
// reported as sql.ErrNoRows.
func findLibrary(ctx context.Context, db bun.IDB, ownerID int) (*models.Library, error) {
	library := &models.Library{}
	err := db.NewSelect().
		Model(library).
		Where("l.owner_id = ?", ownerID).
		Order("l.id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, errors.WithStack(err)
	}
	return library, nil
}

// Link attaches a book to the owner's library. Linking a book that is
// already on the library updates its shelves in place and keeps its shelf
// position. Empty shelves fall back to the defaults.
func (svc *Service) Link(ctx context.Context, ownerID, bookID int, genreShelf, ageShelf string) (*models.LibraryBook, error) {
	genreShelf = strings.TrimSpace(genreShelf)
	if genreShelf == "" {
		genreShelf = models.DefaultGenreShelf
	}
	ageShelf = strings.TrimSpace(ageShelf)

	var linkID int
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		library, err := svc.ensureLibrary(ctx, tx, ownerID)
		if err != nil {
			return err
		}

		now := time.Now()
		link := &models.LibraryBook{}
		err = tx.NewSelect().
			Model(link).
			Where("lb.library_id = ?", library.ID).
			Where("lb.book_id = ?", bookID).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return errors.WithStack(err)
		}

		if err == nil {
			linkID = link.ID
			return updateShelves(ctx, tx, link, genreShelf, ageShelf, now)
		}

		count, err := tx.NewSelect().
			Model((*models.LibraryBook)(nil)).
			Where("library_id = ?", library.ID).
			Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		link = &models.LibraryBook{
			CreatedAt:     now,
			UpdatedAt:     now,
			LibraryID:     library.ID,
			BookID:        bookID,
			ShelfPosition: count + 1,
			GenreShelf:    genreShelf,
			AgeShelf:      ageShelf,
			IsFavorite:    false,
			DateAdded:     now,
		}
		res, err := tx.NewInsert().
			Model(link).
			On("CONFLICT (library_id, book_id) DO NOTHING").
			Returning("id").
			Exec(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) && !database.IsUniqueViolation(err) {
			return errors.WithStack(err)
		}
		if err == nil {
			if n, _ := res.RowsAffected(); n > 0 {
				linkID = link.ID
				return nil
			}
		}

		// Another request linked the book first.
		existing := &models.LibraryBook{}
		err = tx.NewSelect().
			Model(existing).
			Where("lb.library_id = ?", library.ID).
			Where("lb.book_id = ?", bookID).
			Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		linkID = existing.ID
		return updateShelves(ctx, tx, existing, genreShelf, ageShelf, now)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return svc.retrieveLink(ctx, svc.db, linkID)
}

func updateShelves(ctx context.Context, tx bun.Tx, link *models.LibraryBook, genreShelf, ageShelf string, now time.Time) error {
	link.GenreShelf = genreShelf
	link.AgeShelf = ageShelf
	link.UpdatedAt = now
	_, err := tx.NewUpdate().
		Model(link).
		Column("genre_shelf", "age_shelf", "updated_at").
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) retrieveLink(ctx context.Context, db bun.IDB, id int) (*models.LibraryBook, error) {
	link := &models.LibraryBook{}
	err := db.NewSelect().
		Model(link).
		Relation("Book").
		Where("lb.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Library book")
		}
		return nil, errors.WithStack(err)
	}
	return link, nil
}

// RetrieveLink returns the owner's link for a book.
func (svc *Service) RetrieveLink(ctx context.Context, ownerID, bookID int) (*models.LibraryBook, error) {
	link := &models.LibraryBook{}
	err := svc.db.NewSelect().
		Model(link).
		Relation("Book").
		Join("JOIN libraries AS l ON l.id = lb.library_id").
		Where("l.owner_id = ?", ownerID).
		Where("lb.book_id = ?", bookID).
		Order("lb.id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Library book")
		}
		return nil, errors.WithStack(err)
	}
	return link, nil
}

// Unlink removes a book from the owner's library. Removing a book that isn't
// there is not an error.
func (svc *Service) Unlink(ctx context.Context, ownerID, bookID int) error {
	_, err := svc.db.NewDelete().
		Model((*models.LibraryBook)(nil)).
		Where("book_id = ?", bookID).
		Where("library_id IN (?)", svc.db.NewSelect().
			Model((*models.Library)(nil)).
			Column("id").
			Where("owner_id = ?", ownerID)).
		Exec(ctx)
	return errors.WithStack(err)
}

// HasISBN reports whether any of the owner's libraries holds a book with the
// given ISBN, compared in canonical form.
func (svc *Service) HasISBN(ctx context.Context, ownerID int, isbn string) (bool, error) {
	canonical := identifiers.Canonicalize(isbn)
	if canonical == "" {
		return false, nil
	}

	exists, err := svc.db.NewSelect().
		Model((*models.LibraryBook)(nil)).
		Join("JOIN libraries AS l ON l.id = lb.library_id").
		Join("JOIN books AS b ON b.id = lb.book_id").
		Where("l.owner_id = ?", ownerID).
		Where("b.isbn = ?", canonical).
		Exists(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}
	return exists, nil
}

// List returns the books on the owner's library in shelf order. A filter
// first selects links on that exact genre shelf. When none match, every link
// is considered and the filter is compared case-insensitively against the
// genre shelf, or the book's own genre when the link has no shelf.
func (svc *Service) List(ctx context.Context, ownerID int, opts ListLinksOptions) ([]*models.LibraryBook, error) {
	library, err := findLibrary(ctx, svc.db, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*models.LibraryBook{}, nil
		}
		return nil, err
	}

	filter := ""
	if opts.Filter != nil {
		filter = strings.TrimSpace(*opts.Filter)
	}

	if filter != "" {
		links, err := svc.listLinks(ctx, library.ID, &filter)
		if err != nil {
			return nil, err
		}
		if len(links) > 0 {
			return links, nil
		}
	}

	links, err := svc.listLinks(ctx, library.ID, nil)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return links, nil
	}

	filtered := make([]*models.LibraryBook, 0, len(links))
	for _, link := range links {
		if strings.EqualFold(filter, effectiveShelf(link)) {
			filtered = append(filtered, link)
		}
	}
	return filtered, nil
}

func (svc *Service) listLinks(ctx context.Context, libraryID int, genreShelf *string) ([]*models.LibraryBook, error) {
	links := []*models.LibraryBook{}
	q := svc.db.NewSelect().
		Model(&links).
		Relation("Book").
		Where("lb.library_id = ?", libraryID).
		Order("lb.shelf_position ASC", "lb.id ASC")
	if genreShelf != nil {
		q = q.Where("lb.genre_shelf = ?", *genreShelf)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return links, nil
}

func effectiveShelf(link *models.LibraryBook) string {
	if link.GenreShelf != "" {
		return link.GenreShelf
	}
	if link.Book != nil && link.Book.Genre != nil {
		return *link.Book.Genre
	}
	return ""
}

// UpdateLink changes the personal fields on the owner's link for a book.
func (svc *Service) UpdateLink(ctx context.Context, ownerID, bookID int, opts UpdateLinkOptions) (*models.LibraryBook, error) {
	link, err := svc.RetrieveLink(ctx, ownerID, bookID)
	if err != nil {
		return nil, err
	}

	columns := []string{}
	if opts.IsFavorite != nil {
		link.IsFavorite = *opts.IsFavorite
		columns = append(columns, "is_favorite")
	}
	if opts.PersonalRating != nil {
		link.PersonalRating = opts.PersonalRating
		columns = append(columns, "personal_rating")
	}
	if opts.PersonalNotes != nil {
		link.PersonalNotes = opts.PersonalNotes
		columns = append(columns, "personal_notes")
	}
	now := time.Now()
	if opts.MarkRead {
		link.LastReadDate = &now
		columns = append(columns, "last_read_date")
	}
	if len(columns) == 0 {
		return link, nil
	}

	link.UpdatedAt = now
	columns = append(columns, "updated_at")
	_, err = svc.db.NewUpdate().
		Model(link).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return link, nil
}

type ShelfCount struct {
	GenreShelf string `bun:"genre_shelf" json:"genre_shelf"`
	Count      int    `bun:"count" json:"count"`
}

type Summary struct {
	Library       *models.Library `json:"library"`
	BookCount     int             `json:"book_count"`
	FavoriteCount int             `json:"favorite_count"`
	Shelves       []ShelfCount    `json:"shelves"`
}

// Summarize returns the owner's library along with per-shelf counts,
// creating the default library if needed.
func (svc *Service) Summarize(ctx context.Context, ownerID int) (*Summary, error) {
	library, err := svc.EnsureLibrary(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	shelves := []ShelfCount{}
	err = svc.db.NewSelect().
		Model((*models.LibraryBook)(nil)).
		ColumnExpr("lb.genre_shelf").
		ColumnExpr("COUNT(*) AS count").
		Where("lb.library_id = ?", library.ID).
		Group("lb.genre_shelf").
		Order("lb.genre_shelf ASC").
		Scan(ctx, &shelves)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	favorites, err := svc.db.NewSelect().
		Model((*models.LibraryBook)(nil)).
		Where("library_id = ?", library.ID).
		Where("is_favorite = ?", true).
		Count(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	summary := &Summary{
		Library:       library,
		FavoriteCount: favorites,
		Shelves:       shelves,
	}
	for _, shelf := range shelves {
		summary.BookCount += shelf.Count
	}
	return summary, nil
}
