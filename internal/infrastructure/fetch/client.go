// Package fetch performs outbound GETs through the HTTP retry policy.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"AutoBlog/internal/retry"
)

const (
	defaultUserAgent = "AutoBlog/1.0 (+https://github.com/autoblog)"
	maxBodyBytes     = 8 << 20
)

// Client wraps http.Client with classified errors and retries.
type Client struct {
	http      *http.Client
	policy    *retry.Policy
	userAgent string
	headers   http.Header
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithPolicy replaces the retry policy.
func WithPolicy(p *retry.Policy) Option {
	return func(cl *Client) {
		if p != nil {
			cl.policy = p
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(cl *Client) { cl.headers.Set(key, value) }
}

// New builds a client with a 20s timeout and the retry.HTTP policy.
func New(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 20 * time.Second},
		policy:    retry.HTTP(),
		userAgent: defaultUserAgent,
		headers:   http.Header{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if logger != nil {
		c.policy = c.policy.WithLogger(logger)
	}
	return c
}

// Get returns the response body of a successful GET.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	body, _, err := retry.Execute(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, url)
	})
	return body, err
}

// Document parses the page at url as HTML.
func (c *Client) Document(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// JSON decodes the response body at url into v.
func (c *Client) JSON(ctx context.Context, url string, v any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, retry.NewError(retry.Classify(err), fmt.Errorf("request %s: %w", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, retry.StatusError(resp, string(snippet))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, retry.NewError(retry.KindTransient, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

// StripHTML returns the visible text of an HTML fragment with whitespace
// collapsed.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
