package advisory

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/littlelibrary/server/pkg/config"
	"github.com/littlelibrary/server/pkg/models"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.NewForTest()
	cfg.AdvisoryBaseURL = server.URL
	cfg.AdvisoryAPIKey = "sk-test"
	return New(cfg)
}

func completion(content string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return body
}

func testBook() *models.Book {
	return &models.Book{
		Title:       "The Very Hungry Caterpillar",
		Author:      pointerutil.String("Eric Carle"),
		Genre:       pointerutil.String("Juvenile Fiction"),
		Description: pointerutil.String("A caterpillar eats its way through the week."),
		PageCount:   pointerutil.Int(26),
	}
}

func TestClient_Advise(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		req := chatRequest{}
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "gpt-3.5-turbo", req.Model)
		assert.Equal(t, 500, req.MaxTokens)
		assert.InDelta(t, 0.7, req.Temperature, 0.0001)
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "Title: The Very Hungry Caterpillar")
		assert.Contains(t, req.Messages[0].Content, "Author: Eric Carle")

		_, _ = w.Write(completion(`{"suggestedMinAge":1,"suggestedMaxAge":4,"reasoning":"Simple repetitive text.","readingLevel":"Early Reader","themes":["Food","Counting","Growth","Days"]}`))
	})

	advice, err := client.Advise(context.Background(), testBook())
	require.NoError(t, err)
	assert.Equal(t, 1, advice.SuggestedMinAge)
	assert.Equal(t, 4, advice.SuggestedMaxAge)
	assert.Equal(t, "Simple repetitive text.", advice.Reasoning)
	assert.Equal(t, ReadingLevelEarlyReader, advice.ReadingLevel)
	assert.Equal(t, []string{"Food", "Counting", "Growth"}, advice.Themes)
	assert.Equal(t, "Recommended for ages 1-4", advice.AgeRecommendation())
}

func TestClient_Advise_NotConfigured(t *testing.T) {
	t.Parallel()

	cfg := config.NewForTest()
	cfg.AdvisoryAPIKey = ""
	_, err := New(cfg).Advise(context.Background(), testBook())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_Advise_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    []byte
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, nil, ErrServer},
		{"not json", http.StatusOK, completion("I think ages 3 to 5."), ErrMalformed},
		{"missing ages", http.StatusOK, completion(`{"reasoning":"?"}`), ErrMalformed},
		{"no choices", http.StatusOK, []byte(`{"choices":[]}`), ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write(tt.body)
			})
			_, err := client.Advise(context.Background(), testBook())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseAdvice_CodeFence(t *testing.T) {
	t.Parallel()

	advice, err := parseAdvice("```json\n{\"suggestedMinAge\":5,\"suggestedMaxAge\":9,\"readingLevel\":\"Beginning\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, 5, advice.SuggestedMinAge)
	assert.Equal(t, 9, advice.SuggestedMaxAge)
	assert.Equal(t, []string{}, advice.Themes)
}

func TestBuildPrompt_OmitsMissingFields(t *testing.T) {
	t.Parallel()

	prompt := buildPrompt(&models.Book{Title: "Untitled"})
	assert.Contains(t, prompt, "Title: Untitled\n")
	assert.NotContains(t, prompt, "Author:")
	assert.NotContains(t, prompt, "Genre:")
	assert.Contains(t, prompt, "suggestedMinAge, suggestedMaxAge, reasoning, readingLevel, themes")
}
