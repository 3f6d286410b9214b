package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/littlelibrary/server/pkg/circuit"
	"github.com/littlelibrary/server/pkg/config"
	"github.com/littlelibrary/server/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/sony/gobreaker/v2"
)

const serviceName = "text_recognition"

var ErrServer = errors.New("ocr: server error")

// Client recognizes text in images with the Cloud Vision images:annotate
// endpoint.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	breaker *gobreaker.CircuitBreaker[[]string]
}

func New(cfg *config.Config) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.TextRecognitionTimeout},
		baseURL: strings.TrimSuffix(cfg.TextRecognitionBaseURL, "/"),
		apiKey:  cfg.TextRecognitionAPIKey,
		breaker: circuit.New[[]string](serviceName),
	}
}

// RecognizeText returns the lines of text found in image, top to bottom.
// Word-level annotations are ignored.
func (c *Client) RecognizeText(ctx context.Context, image []byte) ([]string, error) {
	start := time.Now()
	lines, err := c.breaker.Execute(func() ([]string, error) {
		return c.annotate(ctx, image)
	})
	metrics.ObserveExternal(serviceName, start, err)
	return lines, err
}

func (c *Client) annotate(ctx context.Context, image []byte) ([]string, error) {
	payload, err := json.Marshal(annotateRequest{
		Requests: []imageRequest{{
			Image:    imageContent{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []feature{{Type: "TEXT_DETECTION"}},
		}},
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	endpoint := c.baseURL + "/images:annotate"
	if c.apiKey != "" {
		endpoint += "?" + url.Values{"key": {c.apiKey}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.WithStack(err)
	}
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

	resp := annotateResponse{}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode annotate response")
	}
	if len(resp.Responses) == 0 {
		return []string{}, nil
	}

	r := resp.Responses[0]
	if r.Error != nil {
		return nil, errors.Errorf("annotate error %d: %s", r.Error.Code, r.Error.Message)
	}

	text := ""
	switch {
	case r.FullTextAnnotation != nil:
		text = r.FullTextAnnotation.Text
	case len(r.TextAnnotations) > 0:
		// The first annotation spans the whole image.
		text = r.TextAnnotations[0].Description
	}
	return splitLines(text), nil
}

func splitLines(text string) []string {
	lines := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type annotateResponse struct {
	Responses []imageResponse `json:"responses"`
}

type imageResponse struct {
	TextAnnotations []struct {
		Description string `json:"description"`
	} `json:"textAnnotations"`
	FullTextAnnotation *struct {
		Text string `json:"text"`
	} `json:"fullTextAnnotation"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
