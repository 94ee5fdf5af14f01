package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AutoBlog/internal/config"
	"AutoBlog/internal/ports"
	"AutoBlog/internal/retry"
)

func newTestClient(url string) *ChatGPTClient {
	return NewChatGPTClient(config.LLMConfig{
		Endpoint: url,
		Model:    "gpt-3.5-turbo",
		APIKey:   "sk-test",
	}, nil)
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  # Title\n\nbody  "}}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Generate(context.Background(), "write", "topic", ports.WithMaxTokens(300))
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nbody", out)

	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 300, got.MaxTokens)
	assert.Equal(t, 0.7, got.Temperature)
	assert.Equal(t, 0.9, got.TopP)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "write", got.Messages[1].Content)
}

func TestGenerateClassifiesStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		header string
		want   retry.Kind
	}{
		{http.StatusTooManyRequests, "12", retry.KindRateLimited},
		{http.StatusUnauthorized, "", retry.KindAuth},
		{http.StatusForbidden, "", retry.KindAuth},
		{http.StatusBadGateway, "", retry.KindTransient},
		{http.StatusRequestTimeout, "", retry.KindTransient},
		{http.StatusBadRequest, "", retry.KindUnknown},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if tc.header != "" {
				w.Header().Set("Retry-After", tc.header)
			}
			http.Error(w, "nope", tc.status)
		}))

		_, err := newTestClient(srv.URL).Generate(context.Background(), "p", "t")
		srv.Close()

		require.Error(t, err)
		assert.Equal(t, tc.want, retry.Classify(err), "status %d", tc.status)
		if tc.header != "" {
			var classified *retry.Error
			require.True(t, errors.As(err, &classified))
			assert.Equal(t, 12*time.Second, classified.RetryAfter)
		}
	}
}

func TestGenerateEmptyCompletion(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), "p", "t")
	require.Error(t, err)
	assert.Equal(t, retry.KindUnknown, retry.Classify(err))
}

func TestGenerateMisconfigured(t *testing.T) {
	t.Parallel()

	client := NewChatGPTClient(config.LLMConfig{Endpoint: "http://localhost", Model: "m"}, nil)
	_, err := client.Generate(context.Background(), "p", "t")
	assert.ErrorIs(t, err, ErrMisconfigured)
	assert.True(t, retry.IsAuth(err))
}

func TestGenerateUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Generate(context.Background(), "p", "t")
	require.Error(t, err)
	assert.Equal(t, retry.KindTransient, retry.Classify(err))
}
