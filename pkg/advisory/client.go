package advisory

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/littlelibrary/server/pkg/circuit"
	"github.com/littlelibrary/server/pkg/config"
	"github.com/littlelibrary/server/pkg/metrics"
	"github.com/littlelibrary/server/pkg/models"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/sony/gobreaker/v2"
)

const (
	serviceName = "advisory"
	maxThemes   = 3
)

var (
	ErrNotConfigured = errors.New("advisory: no api key configured")
	ErrServer        = errors.New("advisory: server error")
	ErrMalformed     = errors.New("advisory: malformed advice")
)

// Client asks an OpenAI-compatible chat completions endpoint for age and
// reading level advice.
type Client struct {
	http        *http.Client
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	breaker     *gobreaker.CircuitBreaker[*Advice]
}

func New(cfg *config.Config) *Client {
	return &Client{
		http:        &http.Client{Timeout: cfg.AdvisoryTimeout},
		baseURL:     strings.TrimSuffix(cfg.AdvisoryBaseURL, "/"),
		apiKey:      cfg.AdvisoryAPIKey,
		model:       cfg.AdvisoryModel,
		maxTokens:   cfg.AdvisoryMaxTokens,
		temperature: cfg.AdvisoryTemperature,
		breaker:     circuit.New[*Advice](serviceName),
	}
}

// Advise returns advice for book. Any failure is returned as an error; use
// Fallback to get deterministic advice instead.
func (c *Client) Advise(ctx context.Context, book *models.Book) (*Advice, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	start := time.Now()
	advice, err := c.breaker.Execute(func() (*Advice, error) {
		return c.complete(ctx, book)
	})
	metrics.ObserveExternal(serviceName, start, err)
	return advice, err
}

func (c *Client) complete(ctx context.Context, book *models.Book) (*Advice, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    []chatMessage{{Role: "user", Content: buildPrompt(book)}},
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "execute request")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if res.StatusCode >= 500 {
		return nil, ErrServer
	}
	if res.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %d: %s", res.StatusCode, string(body))
	}

	resp := chatResponse{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode chat response")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.Wrap(ErrMalformed, "no choices")
	}
	return parseAdvice(resp.Choices[0].Message.Content)
}

func buildPrompt(book *models.Book) string {
	var b strings.Builder
	b.WriteString("Analyze this children's book and provide age recommendations:\n\n")
	b.WriteString("Title: " + book.Title + "\n")
	if book.Author != nil {
		b.WriteString("Author: " + *book.Author + "\n")
	}
	if book.Description != nil {
		b.WriteString("Description: " + *book.Description + "\n")
	}
	if book.Genre != nil {
		b.WriteString("Genre: " + *book.Genre + "\n")
	}
	b.WriteString("\nPlease provide:\n")
	b.WriteString("1. Recommended age range (min and max age in years)\n")
	b.WriteString("2. Brief reasoning for the age recommendation\n")
	b.WriteString("3. Reading level (Early Reader, Beginning, Intermediate, Advanced)\n")
	b.WriteString("4. Main themes (up to 3)\n")
	b.WriteString("\nFormat your response as JSON with keys: suggestedMinAge, suggestedMaxAge, reasoning, readingLevel, themes")
	return b.String()
}

// parseAdvice reads the JSON object out of a completion, tolerating a
// markdown code fence around it.
func parseAdvice(content string) (*Advice, error) {
	content = strings.TrimSpace(content)
	if start, end := strings.IndexByte(content, '{'), strings.LastIndexByte(content, '}'); start >= 0 && end > start {
		content = content[start : end+1]
	}

	raw := struct {
		SuggestedMinAge *int     `json:"suggestedMinAge"`
		SuggestedMaxAge *int     `json:"suggestedMaxAge"`
		Reasoning       string   `json:"reasoning"`
		ReadingLevel    string   `json:"readingLevel"`
		Themes          []string `json:"themes"`
	}{}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, errors.Wrap(ErrMalformed, err.Error())
	}
	if raw.SuggestedMinAge == nil || raw.SuggestedMaxAge == nil {
		return nil, errors.Wrap(ErrMalformed, "missing age range")
	}

	themes := raw.Themes
	if themes == nil {
		themes = []string{}
	}
	if len(themes) > maxThemes {
		themes = themes[:maxThemes]
	}

	return &Advice{
		SuggestedMinAge: *raw.SuggestedMinAge,
		SuggestedMaxAge: *raw.SuggestedMaxAge,
		Reasoning:       raw.Reasoning,
		ReadingLevel:    raw.ReadingLevel,
		Themes:          themes,
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
