package catalog

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/littlelibrary/server/pkg/circuit"
	"github.com/littlelibrary/server/pkg/config"
	"github.com/littlelibrary/server/pkg/htmlutil"
	"github.com/littlelibrary/server/pkg/lookupcache"
	"github.com/littlelibrary/server/pkg/metrics"
	"github.com/littlelibrary/server/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	serviceName   = "catalog"
	maxTitleQuery = 200
)

// Client looks books up in the Google Books volumes API. Responses are
// cached when a cache is given.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*volumesResponse]
	cache   *lookupcache.Cache
}

// New creates a catalog client. cache may be nil.
func New(cfg *config.Config, cache *lookupcache.Cache) *Client {
	limit := rate.Inf
	if cfg.CatalogRateLimit > 0 {
		limit = rate.Limit(cfg.CatalogRateLimit)
	}
	burst := cfg.CatalogRateBurst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.CatalogTimeout},
		baseURL: strings.TrimSuffix(cfg.CatalogBaseURL, "/"),
		apiKey:  cfg.CatalogAPIKey,
		limiter: rate.NewLimiter(limit, burst),
		breaker: circuit.New[*volumesResponse]("catalog"),
		cache:   cache,
	}
}

// FindByISBN returns the first volume matching isbn, or nil when the catalog
// has none. The returned book is not persisted.
func (c *Client) FindByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	resp, err := c.volumes(ctx, "isbn:"+isbn)
	if err != nil {
		return nil, err
	}
	if resp.TotalItems == 0 || len(resp.Items) == 0 {
		return nil, nil
	}
	return resp.Items[0].toBook(), nil
}

// SearchByTitle returns every volume matching text as a title, in the order
// the catalog ranks them. The returned books are not persisted.
func (c *Client) SearchByTitle(ctx context.Context, text string) ([]*models.Book, error) {
	q := titleQuery(text)
	if q == "" {
		return []*models.Book{}, nil
	}

	resp, err := c.volumes(ctx, "intitle:"+q)
	if err != nil {
		return nil, err
	}

	books := make([]*models.Book, 0, len(resp.Items))
	for _, item := range resp.Items {
		books = append(books, item.toBook())
	}
	return books, nil
}

func (c *Client) volumes(ctx context.Context, q string) (*volumesResponse, error) {
	log := logger.FromContext(ctx)
	key := "catalog:volumes:" + q

	if c.cache != nil {
		cached := &volumesResponse{}
		ok, err := c.cache.Get(ctx, key, cached)
		if err != nil {
			log.Err(err).Warn("catalog cache read failed", logger.Data{"q": q})
		}
		if ok {
			metrics.LookupCacheResults.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.LookupCacheResults.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*volumesResponse, error) {
		return c.fetch(ctx, q)
	})
	metrics.ObserveExternal(serviceName, start, err)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, resp); err != nil {
			log.Err(err).Warn("catalog cache write failed", logger.Data{"q": q})
		}
	}
	return resp, nil
}

func (c *Client) fetch(ctx context.Context, q string) (*volumesResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}

	query := url.Values{"q": {q}}
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/volumes?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "execute request")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	switch {
	case res.StatusCode == http.StatusOK:
	case res.StatusCode == http.StatusNotFound:
		return &volumesResponse{}, nil
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case res.StatusCode == http.StatusBadRequest:
		return nil, ErrBadRequest
	case res.StatusCode >= 500:
		return nil, ErrServer
	default:
		return nil, errors.Errorf("unexpected status %d: %s", res.StatusCode, string(body))
	}

	resp := &volumesResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		return nil, errors.Wrap(err, "decode volumes response")
	}
	return resp, nil
}

// titleQuery flattens free text onto one line and caps it at 200 characters.
func titleQuery(text string) string {
	q := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	q = strings.TrimSpace(q)
	if r := []rune(q); len(r) > maxTitleQuery {
		q = strings.TrimSpace(string(r[:maxTitleQuery]))
	}
	return q
}

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title               string               `json:"title"`
	Authors             []string             `json:"authors"`
	Publisher           string               `json:"publisher"`
	PublishedDate       string               `json:"publishedDate"`
	Description         string               `json:"description"`
	IndustryIdentifiers []industryIdentifier `json:"industryIdentifiers"`
	PageCount           *int                 `json:"pageCount"`
	Categories          []string             `json:"categories"`
	ImageLinks          *imageLinks          `json:"imageLinks"`
}

type industryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type imageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

func (v volume) toBook() *models.Book {
	info := v.VolumeInfo
	book := &models.Book{
		Title:     info.Title,
		ISBN:      info.isbn(),
		PageCount: info.PageCount,
	}
	if v.ID != "" {
		book.ExternalCatalogID = &v.ID
	}
	if len(info.Authors) > 0 {
		book.Author = &info.Authors[0]
	}
	if len(info.Categories) > 0 {
		book.Genre = &info.Categories[0]
	}
	if description := htmlutil.PlainText(info.Description); description != "" {
		book.Description = &description
	}
	if info.Publisher != "" {
		book.Publisher = &info.Publisher
	}
	if len(info.PublishedDate) >= 4 {
		if year, err := strconv.Atoi(info.PublishedDate[:4]); err == nil {
			book.PublicationYear = &year
		}
	}
	if info.ImageLinks != nil {
		cover := info.ImageLinks.Thumbnail
		if cover == "" {
			cover = info.ImageLinks.SmallThumbnail
		}
		if cover != "" {
			book.CoverImageURL = &cover
		}
	}
	return book
}

// isbn prefers the first ISBN_13 and falls back to the first ISBN_10.
func (info volumeInfo) isbn() string {
	isbn10 := ""
	for _, id := range info.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			return id.Identifier
		case "ISBN_10":
			if isbn10 == "" {
				isbn10 = id.Identifier
			}
		}
	}
	return isbn10
}
