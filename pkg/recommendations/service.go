package recommendations

import (
	"context"
	"net/url"
	"strings"

	"github.com/littlelibrary/server/pkg/advisory"
	"github.com/littlelibrary/server/pkg/identifiers"
	"github.com/littlelibrary/server/pkg/metrics"
	"github.com/littlelibrary/server/pkg/models"
	"github.com/robinjoseph08/golib/logger"
)

// MaxSimilarBooks caps the similar books in a result.
const MaxSimilarBooks = 12

// BookSource finds the book a query is about. Neither method writes.
type BookSource interface {
	RetrieveByID(ctx context.Context, id int) (*models.Book, error)
	LookupISBN(ctx context.Context, isbn string) (*models.Book, error)
}

// Catalog searches the external corpus by title.
type Catalog interface {
	SearchByTitle(ctx context.Context, text string) ([]*models.Book, error)
}

// Advisor produces age and theme guidance for a book.
type Advisor interface {
	Advise(ctx context.Context, book *models.Book) (*advisory.Advice, error)
}

type Service struct {
	books   BookSource
	catalog Catalog
	advisor Advisor
}

func NewService(books BookSource, catalog Catalog, advisor Advisor) *Service {
	return &Service{books, catalog, advisor}
}

// Recommend builds the recommendation result for a query. Advice comes from
// the book named by BookID or ISBN. Similar books come from a title search.
// Each half is skipped when its input is missing.
func (svc *Service) Recommend(ctx context.Context, query Query) (*Result, error) {
	result := &Result{Themes: []string{}}

	source, err := svc.resolveSource(ctx, query)
	if err != nil {
		return nil, err
	}

	sourceISBN := ""
	if query.ISBN != nil {
		sourceISBN = identifiers.Canonicalize(*query.ISBN)
	}
	if source != nil {
		if source.ISBN != "" {
			sourceISBN = identifiers.Canonicalize(source.ISBN)
		}
		result.applyAdvice(svc.advise(ctx, query.overlay(source)))
	}

	title := ""
	if query.Title != nil {
		title = strings.TrimSpace(*query.Title)
	}
	if title == "" {
		return result, nil
	}

	candidates, err := svc.catalog.SearchByTitle(ctx, title)
	if err != nil {
		// Advice is still useful without similar books.
		logger.FromContext(ctx).Err(err).Warn("similar book search failed", logger.Data{"title": title})
		return result, nil
	}

	similar := FilterSimilar(candidates, sourceISBN)
	result.SimilarBooks = &similar

	return result, nil
}

func (svc *Service) resolveSource(ctx context.Context, query Query) (*models.Book, error) {
	if query.BookID != nil {
		return svc.books.RetrieveByID(ctx, *query.BookID)
	}
	if query.ISBN != nil && strings.TrimSpace(*query.ISBN) != "" {
		return svc.books.LookupISBN(ctx, *query.ISBN)
	}
	return nil, nil
}

func (svc *Service) advise(ctx context.Context, book *models.Book) *advisory.Advice {
	advice, err := svc.advisor.Advise(ctx, book)
	if err != nil {
		logger.FromContext(ctx).Err(err).Info("using fallback advice", logger.Data{"book_id": book.ID})
		return advisory.Fallback(book)
	}
	if advice == nil {
		return advisory.Fallback(book)
	}
	return advice
}

// FilterSimilar keeps candidates in order that have an absolute http(s)
// cover, aren't the source book, and haven't been seen already by canonical
// ISBN, stopping at MaxSimilarBooks. Candidates without an ISBN are never
// treated as duplicates.
func FilterSimilar(candidates []*models.Book, sourceISBN string) []*models.Book {
	sourceISBN = identifiers.Canonicalize(sourceISBN)
	seen := map[string]struct{}{}
	out := make([]*models.Book, 0, MaxSimilarBooks)

	for i, candidate := range candidates {
		if len(out) >= MaxSimilarBooks {
			metrics.RecommendationCandidates.WithLabelValues("over_limit").Add(float64(len(candidates) - i))
			break
		}
		if candidate == nil || !hasUsableCover(candidate.CoverImageURL) {
			metrics.RecommendationCandidates.WithLabelValues("no_cover").Inc()
			continue
		}

		isbn := identifiers.Canonicalize(candidate.ISBN)
		if isbn != "" {
			if isbn == sourceISBN {
				metrics.RecommendationCandidates.WithLabelValues("source").Inc()
				continue
			}
			if _, ok := seen[isbn]; ok {
				metrics.RecommendationCandidates.WithLabelValues("duplicate").Inc()
				continue
			}
			seen[isbn] = struct{}{}
		}

		metrics.RecommendationCandidates.WithLabelValues("kept").Inc()
		out = append(out, candidate)
	}

	return out
}

func hasUsableCover(cover *string) bool {
	if cover == nil {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(*cover))
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
