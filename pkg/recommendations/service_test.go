package recommendations

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/littlelibrary/server/pkg/advisory"
	"github.com/littlelibrary/server/pkg/errcodes"
	"github.com/littlelibrary/server/pkg/identifiers"
	"github.com/littlelibrary/server/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sourceISBN = "9780439708180"

type fakeBooks struct {
	byID   map[int]*models.Book
	byISBN map[string]*models.Book
}

func (f *fakeBooks) RetrieveByID(_ context.Context, id int) (*models.Book, error) {
	if b, ok := f.byID[id]; ok {
		return b, nil
	}
	return nil, errcodes.NotFound("Book")
}

func (f *fakeBooks) LookupISBN(_ context.Context, isbn string) (*models.Book, error) {
	canonical := identifiers.Canonicalize(isbn)
	if b, ok := f.byISBN[canonical]; ok {
		return b, nil
	}
	return nil, errcodes.BookNotFound(canonical)
}

type fakeCatalog struct {
	results []*models.Book
	err     error
	queries []string
}

func (f *fakeCatalog) SearchByTitle(_ context.Context, text string) ([]*models.Book, error) {
	f.queries = append(f.queries, text)
	return f.results, f.err
}

type fakeAdvisor struct {
	advice *advisory.Advice
	err    error
	seen   []*models.Book
}

func (f *fakeAdvisor) Advise(_ context.Context, book *models.Book) (*advisory.Advice, error) {
	f.seen = append(f.seen, book)
	return f.advice, f.err
}

func newSourceBooks() *fakeBooks {
	hp := &models.Book{ID: 1, ISBN: sourceISBN, Title: "Harry Potter and the Sorcerer's Stone", PageCount: pointerutil.Int(309)}
	return &fakeBooks{
		byID:   map[int]*models.Book{1: hp},
		byISBN: map[string]*models.Book{sourceISBN: hp},
	}
}

func candidate(isbn, cover string) *models.Book {
	b := &models.Book{ISBN: isbn, Title: "Candidate " + isbn}
	if cover != "" {
		b.CoverImageURL = pointerutil.String(cover)
	}
	return b
}

func coverFor(i int) string {
	return fmt.Sprintf("https://books.example.com/covers/%d.jpg", i)
}

// twentyCandidates builds the corpus answer for "Harry Potter": 20 entries
// where 3 have no usable cover, 2 share an ISBN, and 1 is the source book.
func twentyCandidates() []*models.Book {
	candidates := []*models.Book{
		candidate("9780439064873", coverFor(0)),
		candidate("9780439136365", ""),
		candidate("978-0-439-70818-0", coverFor(2)), // source, with separators
		candidate("9780439139601", coverFor(3)),
		candidate("9780439358071", "/covers/relative.jpg"),
		candidate("9780439785969", coverFor(5)),
		candidate("9780545010221", coverFor(6)),
		candidate("978 0545010221", coverFor(7)), // duplicate of the previous one
		candidate("9780545582889", "ftp://books.example.com/8.jpg"),
	}
	for i := len(candidates); i < 20; i++ {
		candidates = append(candidates, candidate(fmt.Sprintf("97800000000%02d", i), coverFor(i)))
	}
	return candidates
}

func TestRecommend_TwentyCandidateScenario(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{results: twentyCandidates()}
	svc := NewService(newSourceBooks(), catalog, &fakeAdvisor{err: advisory.ErrNotConfigured})

	result, err := svc.Recommend(context.Background(), Query{
		ISBN:  pointerutil.String(sourceISBN),
		Title: pointerutil.String("Harry Potter"),
	})
	require.NoError(t, err)
	require.NotNil(t, result.SimilarBooks)

	similar := *result.SimilarBooks
	assert.Len(t, similar, MaxSimilarBooks)
	assert.Equal(t, []string{"Harry Potter"}, catalog.queries)

	seen := map[string]bool{}
	for _, b := range similar {
		isbn := identifiers.Canonicalize(b.ISBN)
		assert.NotEqual(t, sourceISBN, isbn)
		assert.False(t, seen[isbn], "duplicate %s", isbn)
		seen[isbn] = true
		require.NotNil(t, b.CoverImageURL)
		assert.Regexp(t, `^https://`, *b.CoverImageURL)
	}

	// Corpus order is kept and the first of the duplicate pair wins.
	assert.Equal(t, "9780439064873", similar[0].ISBN)
	assert.Equal(t, "9780439139601", similar[1].ISBN)
	assert.Equal(t, "9780439785969", similar[2].ISBN)
	assert.Equal(t, "9780545010221", similar[3].ISBN)
	assert.Equal(t, "9780000000009", similar[4].ISBN)
}

func TestRecommend_AdviceFromAdvisor(t *testing.T) {
	t.Parallel()

	advisor := &fakeAdvisor{advice: &advisory.Advice{
		SuggestedMinAge: 8,
		SuggestedMaxAge: 12,
		Reasoning:       "Friendship and courage.",
		ReadingLevel:    advisory.ReadingLevelIntermediate,
		Themes:          []string{"Friendship", "Courage"},
	}}
	svc := NewService(newSourceBooks(), &fakeCatalog{}, advisor)

	result, err := svc.Recommend(context.Background(), Query{BookID: pointerutil.Int(1)})
	require.NoError(t, err)

	assert.Equal(t, "Recommended for ages 8-12", *result.AgeRecommendation)
	assert.Equal(t, 8, *result.SuggestedMinAge)
	assert.Equal(t, 12, *result.SuggestedMaxAge)
	assert.Equal(t, "Friendship and courage.", *result.Reasoning)
	assert.Equal(t, []string{"Friendship", "Courage"}, result.Themes)
	assert.Nil(t, result.SimilarBooks)
}

func TestRecommend_FallsBackWhenAdvisorFails(t *testing.T) {
	t.Parallel()

	books := &fakeBooks{byID: map[int]*models.Book{
		2: {ID: 2, ISBN: "9780064430173", Title: "Goodnight Moon", PageCount: pointerutil.Int(30)},
	}}
	svc := NewService(books, &fakeCatalog{}, &fakeAdvisor{err: errors.New("timeout")})

	result, err := svc.Recommend(context.Background(), Query{BookID: pointerutil.Int(2)})
	require.NoError(t, err)

	assert.Equal(t, "Recommended for ages 2-5", *result.AgeRecommendation)
	assert.Equal(t, advisory.ReadingLevelEarlyReader, *result.ReadingLevel)
	assert.Equal(t, []string{"Adventure", "Learning", "Fun"}, result.Themes)
}

func TestRecommend_HintsFillMissingFields(t *testing.T) {
	t.Parallel()

	books := &fakeBooks{byID: map[int]*models.Book{
		3: {ID: 3, ISBN: "9780064430173", Title: "Goodnight Moon"},
	}}
	advisor := &fakeAdvisor{err: errors.New("down")}
	svc := NewService(books, &fakeCatalog{}, advisor)

	result, err := svc.Recommend(context.Background(), Query{
		BookID:     pointerutil.Int(3),
		PageCount:  pointerutil.Int(50),
		GenreShelf: pointerutil.String("Bedtime"),
	})
	require.NoError(t, err)

	require.Len(t, advisor.seen, 1)
	assert.Equal(t, 50, *advisor.seen[0].PageCount)
	assert.Equal(t, "Bedtime", *advisor.seen[0].Genre)
	assert.Nil(t, books.byID[3].PageCount, "stored book must not change")
	assert.Equal(t, "Recommended for ages 4-8", *result.AgeRecommendation)
}

func TestRecommend_EmptyShell(t *testing.T) {
	t.Parallel()

	advisor := &fakeAdvisor{}
	catalog := &fakeCatalog{}
	svc := NewService(newSourceBooks(), catalog, advisor)

	result, err := svc.Recommend(context.Background(), Query{Description: pointerutil.String("a wizard book")})
	require.NoError(t, err)

	assert.Nil(t, result.AgeRecommendation)
	assert.Nil(t, result.SuggestedMinAge)
	assert.Empty(t, result.Themes)
	assert.Nil(t, result.SimilarBooks)
	assert.Empty(t, advisor.seen)
	assert.Empty(t, catalog.queries)
}

func TestRecommend_TitleOnlyDedupesWithoutSource(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{results: []*models.Book{
		candidate("9780439708180", coverFor(1)),
		candidate("978-0-439-70818-0", coverFor(2)),
		candidate("", coverFor(3)),
		candidate("", coverFor(4)),
	}}
	svc := NewService(newSourceBooks(), catalog, &fakeAdvisor{})

	result, err := svc.Recommend(context.Background(), Query{Title: pointerutil.String("Harry Potter")})
	require.NoError(t, err)
	require.NotNil(t, result.SimilarBooks)

	similar := *result.SimilarBooks
	require.Len(t, similar, 3)
	assert.Equal(t, "9780439708180", similar[0].ISBN)
	assert.Empty(t, similar[1].ISBN)
	assert.Empty(t, similar[2].ISBN)
}

func TestRecommend_SearchFailureLeavesSimilarBooksUnset(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{err: errors.New("circuit open")}
	svc := NewService(newSourceBooks(), catalog, &fakeAdvisor{err: errors.New("down")})

	result, err := svc.Recommend(context.Background(), Query{
		BookID: pointerutil.Int(1),
		Title:  pointerutil.String("Harry Potter"),
	})
	require.NoError(t, err)
	assert.NotNil(t, result.AgeRecommendation)
	assert.Nil(t, result.SimilarBooks)
}

func TestRecommend_NoSurvivorsIsEmptyList(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{results: []*models.Book{candidate("9780439136365", "")}}
	svc := NewService(newSourceBooks(), catalog, &fakeAdvisor{})

	result, err := svc.Recommend(context.Background(), Query{Title: pointerutil.String("Harry Potter")})
	require.NoError(t, err)
	require.NotNil(t, result.SimilarBooks)
	assert.Empty(t, *result.SimilarBooks)
}

func TestRecommend_UnknownSourceIsAnError(t *testing.T) {
	t.Parallel()

	svc := NewService(newSourceBooks(), &fakeCatalog{}, &fakeAdvisor{})

	_, err := svc.Recommend(context.Background(), Query{BookID: pointerutil.Int(404)})
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, "not_found"))

	_, err = svc.Recommend(context.Background(), Query{ISBN: pointerutil.String("9780000000000")})
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeBookNotFound))
}

func TestFilterSimilar_Properties(t *testing.T) {
	t.Parallel()

	covers := []string{
		"",
		"/relative/cover.jpg",
		"cover.jpg",
		"ftp://example.com/c.jpg",
		"http://example.com/c.jpg",
		"https://example.com/c.jpg",
		"HTTPS://EXAMPLE.COM/C.JPG",
	}
	isbns := []string{
		"",
		sourceISBN,
		"978-0-439-70818-0",
		"9780316769488",
		"978 0316 769488",
		"0316769487",
		"9780547928227",
	}

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := rng.Intn(40)
		candidates := make([]*models.Book, 0, n)
		for i := 0; i < n; i++ {
			isbn := isbns[rng.Intn(len(isbns))]
			// Unique ISBNs keep the >12 qualifying case reachable.
			if rng.Intn(3) == 0 {
				isbn = fmt.Sprintf("979%010d", rng.Intn(1_000_000))
			}
			candidates = append(candidates, candidate(isbn, covers[rng.Intn(len(covers))]))
		}

		out := FilterSimilar(candidates, sourceISBN)

		assert.LessOrEqual(t, len(out), MaxSimilarBooks)
		seen := map[string]bool{}
		for _, b := range out {
			isbn := identifiers.Canonicalize(b.ISBN)
			assert.NotEqual(t, sourceISBN, isbn)
			if isbn != "" {
				assert.False(t, seen[isbn], "round %d: duplicate %s", round, isbn)
				seen[isbn] = true
			}
			assert.True(t, hasUsableCover(b.CoverImageURL), "round %d: bad cover", round)
		}

		// Order is preserved: out is a subsequence of candidates.
		j := 0
		for _, c := range candidates {
			if j < len(out) && c == out[j] {
				j++
			}
		}
		assert.Equal(t, len(out), j, "round %d: order not preserved", round)
	}
}

func TestFilterSimilar_CapsQualifyingCandidates(t *testing.T) {
	t.Parallel()

	candidates := make([]*models.Book, 0, 30)
	for i := 0; i < 30; i++ {
		candidates = append(candidates, candidate(fmt.Sprintf("97900000000%02d", i), coverFor(i)))
	}

	out := FilterSimilar(candidates, "")
	require.Len(t, out, MaxSimilarBooks)
	assert.Equal(t, candidates[:MaxSimilarBooks], out)
}

func TestHasUsableCover(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cover    *string
		expected bool
	}{
		{nil, false},
		{pointerutil.String(""), false},
		{pointerutil.String("   "), false},
		{pointerutil.String("/covers/1.jpg"), false},
		{pointerutil.String("covers/1.jpg"), false},
		{pointerutil.String("data:image/png;base64,AAAA"), false},
		{pointerutil.String("http:///nohost.jpg"), false},
		{pointerutil.String("http://books.google.com/c.jpg"), true},
		{pointerutil.String(" https://books.google.com/c.jpg "), true},
	}

	for _, tt := range tests {
		name := "<nil>"
		if tt.cover != nil {
			name = *tt.cover
		}
		assert.Equal(t, tt.expected, hasUsableCover(tt.cover), name)
	}
}
