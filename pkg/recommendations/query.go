package recommendations

import (
	"github.com/littlelibrary/server/pkg/advisory"
	"github.com/littlelibrary/server/pkg/models"
)

// Query names the book to advise on and the title to find similar books
// for. The remaining fields are hints the client already knows about the
// book. They fill in whatever the stored record is missing.
type Query struct {
	BookID *int    `json:"book_id,omitempty" validate:"omitempty,min=1"`
	ISBN   *string `json:"isbn,omitempty"`
	Title  *string `json:"title,omitempty"`

	Description     *string `json:"description,omitempty"`
	Author          *string `json:"author,omitempty"`
	Genre           *string `json:"genre,omitempty"`
	Publisher       *string `json:"publisher,omitempty"`
	PublicationYear *int    `json:"publication_year,omitempty"`
	PageCount       *int    `json:"page_count,omitempty" validate:"omitempty,min=0"`
	GenreShelf      *string `json:"genre_shelf,omitempty"`
	// AgeShelf is accepted from older clients but carries nothing the
	// advisor uses.
	AgeShelf *string `json:"age_shelf,omitempty"`
}

// Result is the recommendation for one query. The advice fields are null
// when the query named no book. SimilarBooks is omitted when no title was
// given, and is an empty list when nothing survived filtering.
type Result struct {
	AgeRecommendation *string         `json:"age_recommendation"`
	SuggestedMinAge   *int            `json:"suggested_min_age"`
	SuggestedMaxAge   *int            `json:"suggested_max_age"`
	Reasoning         *string         `json:"reasoning"`
	ReadingLevel      *string         `json:"reading_level"`
	Themes            []string        `json:"themes"`
	SimilarBooks      *[]*models.Book `json:"similar_books,omitempty"`
}

func (r *Result) applyAdvice(advice *advisory.Advice) {
	ageRecommendation := advice.AgeRecommendation()
	minAge, maxAge := advice.SuggestedMinAge, advice.SuggestedMaxAge
	reasoning, readingLevel := advice.Reasoning, advice.ReadingLevel

	r.AgeRecommendation = &ageRecommendation
	r.SuggestedMinAge = &minAge
	r.SuggestedMaxAge = &maxAge
	r.Reasoning = &reasoning
	r.ReadingLevel = &readingLevel
	r.Themes = append([]string{}, advice.Themes...)
}

// overlay returns a copy of book with the query's hints filling its empty
// fields. The stored book is never modified.
func (q Query) overlay(book *models.Book) *models.Book {
	out := *book
	fill := func(dst **string, src *string) {
		if *dst == nil && src != nil && *src != "" {
			v := *src
			*dst = &v
		}
	}
	fill(&out.Description, q.Description)
	fill(&out.Author, q.Author)
	fill(&out.Genre, q.Genre)
	fill(&out.Genre, q.GenreShelf)
	fill(&out.Publisher, q.Publisher)
	if out.PublicationYear == nil && q.PublicationYear != nil {
		v := *q.PublicationYear
		out.PublicationYear = &v
	}
	if out.PageCount == nil && q.PageCount != nil {
		v := *q.PageCount
		out.PageCount = &v
	}
	return &out
}
