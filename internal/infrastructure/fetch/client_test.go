package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AutoBlog/internal/retry"
)

func noWait(context.Context, time.Duration) error { return nil }

func TestGetRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(nil, WithPolicy(retry.HTTP().WithSleeper(noWait)), WithHeader("X-Test", "yes"))
	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.EqualValues(t, 3, calls.Load())
}

func TestGetDoesNotRetryNotFound(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	c := New(nil, WithPolicy(retry.HTTP().WithSleeper(noWait)))
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestJSONAndDocument(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name":"autoblog"}`))
	})
	mux.HandleFunc("/html", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Hello</h1></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(nil)
	var payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.JSON(context.Background(), srv.URL+"/json", &payload))
	assert.Equal(t, "autoblog", payload.Name)

	doc, err := c.Document(context.Background(), srv.URL+"/html")
	require.NoError(t, err)
	assert.Equal(t, "Hello", doc.Find("h1").Text())
}

func TestStripHTML(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Hello world & more", StripHTML("<p>Hello <b>world</b></p>\n<p>&amp; more</p>"))
	assert.Equal(t, "plain text", StripHTML("  plain \n text "))
}
