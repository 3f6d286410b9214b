package books

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/littlelibrary/server/pkg/catalog"
	"github.com/littlelibrary/server/pkg/database"
	"github.com/littlelibrary/server/pkg/errcodes"
	"github.com/littlelibrary/server/pkg/identifiers"
	"github.com/littlelibrary/server/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

const catalogServiceName = "Book catalog"

// Catalog is the external book metadata corpus. FindByISBN returns nil and
// no error when the corpus has no entry.
type Catalog interface {
	FindByISBN(ctx context.Context, isbn string) (*models.Book, error)
	SearchByTitle(ctx context.Context, text string) ([]*models.Book, error)
}

type RetrieveBookOptions struct {
	ID   *int
	ISBN *string
}

type Service struct {
	db      *bun.DB
	catalog Catalog
}

func NewService(db *bun.DB, catalog Catalog) *Service {
	return &Service{db, catalog}
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	return retrieveBook(ctx, svc.db, opts)
}

func retrieveBook(ctx context.Context, db bun.IDB, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := db.NewSelect().Model(book)
	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.ISBN != nil {
		q = q.Where("b.isbn = ?", *opts.ISBN)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

// RetrieveByID returns the stored book with the given id.
func (svc *Service) RetrieveByID(ctx context.Context, id int) (*models.Book, error) {
	return svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
}

// ResolveISBN returns the stored book for an ISBN in any separator form. A
// book that isn't stored yet is fetched from the catalog and persisted under
// the canonical ISBN that was asked for. Stored books are never overwritten.
func (svc *Service) ResolveISBN(ctx context.Context, raw string) (*models.Book, error) {
	isbn := identifiers.Canonicalize(raw)
	if isbn == "" {
		return nil, errcodes.MissingISBN()
	}

	book, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ISBN: &isbn})
	if err == nil {
		return book, nil
	}
	if !errcodes.HasCode(err, "not_found") {
		return nil, err
	}

	found, err := svc.findInCatalog(ctx, isbn)
	if err != nil {
		return nil, err
	}

	return svc.insertOrFetch(ctx, found)
}

// ResolvePayload stores a book described entirely by the client, without
// consulting the catalog. When a book with the same canonical ISBN already
// exists it is returned untouched.
func (svc *Service) ResolvePayload(ctx context.Context, payload *models.Book) (*models.Book, error) {
	isbn := identifiers.Canonicalize(payload.ISBN)
	if isbn == "" {
		return nil, errcodes.MissingISBN()
	}

	book, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ISBN: &isbn})
	if err == nil {
		return book, nil
	}
	if !errcodes.HasCode(err, "not_found") {
		return nil, err
	}

	candidate := *payload
	candidate.ID = 0
	candidate.ISBN = isbn
	return svc.insertOrFetch(ctx, &candidate)
}

// LookupISBN returns the stored book for an ISBN, or the catalog's entry
// for it when it isn't stored. Nothing is persisted.
func (svc *Service) LookupISBN(ctx context.Context, raw string) (*models.Book, error) {
	isbn := identifiers.Canonicalize(raw)
	if isbn == "" {
		return nil, errcodes.MissingISBN()
	}

	book, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ISBN: &isbn})
	if err == nil {
		return book, nil
	}
	if !errcodes.HasCode(err, "not_found") {
		return nil, err
	}

	return svc.findInCatalog(ctx, isbn)
}

// Lookup searches the catalog by ISBN when one is given, returning at most
// one book, and by title otherwise.
func (svc *Service) Lookup(ctx context.Context, isbn, title string) ([]*models.Book, error) {
	if canonical := identifiers.Canonicalize(isbn); canonical != "" {
		book, err := svc.catalog.FindByISBN(ctx, canonical)
		if err != nil {
			return nil, svc.catalogError(ctx, err, canonical)
		}
		if book == nil {
			return []*models.Book{}, nil
		}
		if book.ISBN == "" {
			book.ISBN = canonical
		}
		return []*models.Book{book}, nil
	}

	return svc.Search(ctx, title)
}

// Search runs a catalog title search.
func (svc *Service) Search(ctx context.Context, title string) ([]*models.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return []*models.Book{}, nil
	}

	found, err := svc.catalog.SearchByTitle(ctx, title)
	if err != nil {
		return nil, svc.catalogError(ctx, err, "")
	}
	if found == nil {
		found = []*models.Book{}
	}
	return found, nil
}

func (svc *Service) findInCatalog(ctx context.Context, isbn string) (*models.Book, error) {
	found, err := svc.catalog.FindByISBN(ctx, isbn)
	if err != nil {
		return nil, svc.catalogError(ctx, err, isbn)
	}
	if found == nil {
		return nil, errcodes.BookNotFound(isbn)
	}

	// The catalog may list the book under its other ISBN form.
	found.ISBN = isbn
	return found, nil
}

// catalogError maps a failed catalog call onto an API error. A query the
// catalog rejects as malformed can't match anything.
func (svc *Service) catalogError(ctx context.Context, err error, isbn string) error {
	if isbn != "" && errors.Is(err, catalog.ErrBadRequest) {
		return errcodes.BookNotFound(isbn)
	}
	logger.FromContext(ctx).Err(err).Warn("catalog call failed", logger.Data{"isbn": isbn})
	return errcodes.ExternalServiceUnavailable(catalogServiceName)
}

// insertOrFetch stores book unless its ISBN is already taken, in which case
// the stored row wins and is returned.
func (svc *Service) insertOrFetch(ctx context.Context, book *models.Book) (*models.Book, error) {
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now

	var stored *models.Book
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(book).
			On("CONFLICT (isbn) DO NOTHING").
			Returning("id").
			Exec(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return errors.WithStack(err)
		}
		if err == nil {
			if n, _ := res.RowsAffected(); n > 0 {
				stored = book
				return nil
			}
		}

		stored, err = retrieveBook(ctx, tx, RetrieveBookOptions{ISBN: &book.ISBN})
		return err
	})
	if err != nil {
		if !database.IsUniqueViolation(err) {
			return nil, errors.WithStack(err)
		}
		// Lost a race to another writer outside the conflict clause.
		return svc.RetrieveBook(ctx, RetrieveBookOptions{ISBN: &book.ISBN})
	}

	if stored != book {
		logger.FromContext(ctx).Info("book already stored", logger.Data{"isbn": book.ISBN, "book_id": stored.ID})
	}
	return stored, nil
}
