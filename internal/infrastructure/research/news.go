package research

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/infrastructure/fetch"
)

const (
	newsPageSize       = 5
	newsWindow         = 30 * 24 * time.Hour
	newsDescriptionCap = 200
)

// NewsClient queries the NewsAPI "everything" endpoint.
type NewsClient struct {
	endpoint string
	client   *fetch.Client
	now      func() time.Time
}

// NewNewsClient returns nil when apiKey is empty so callers can skip news.
func NewNewsClient(endpoint, apiKey string, opts ...fetch.Option) *NewsClient {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	opts = append(opts, fetch.WithHeader("X-Api-Key", apiKey))
	return &NewsClient{endpoint: endpoint, client: fetch.New(nil, opts...), now: time.Now}
}

type newsResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Recent returns up to five English articles about topic from the last 30
// days, newest first. Articles without a title or description are dropped.
func (n *NewsClient) Recent(ctx context.Context, topic string) ([]domain.Development, error) {
	params := url.Values{
		"q":        {topic},
		"language": {"en"},
		"sortBy":   {"publishedAt"},
		"pageSize": {fmt.Sprint(newsPageSize)},
		"from":     {n.now().Add(-newsWindow).Format(time.DateOnly)},
	}

	var resp newsResponse
	if err := n.client.JSON(ctx, n.endpoint+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %q: %s", resp.Status, resp.Message)
	}

	var out []domain.Development
	for _, a := range resp.Articles {
		if strings.TrimSpace(a.Title) == "" || strings.TrimSpace(a.Description) == "" {
			continue
		}
		desc := a.Description
		if r := []rune(desc); len(r) > newsDescriptionCap {
			desc = string(r[:newsDescriptionCap]) + "..."
		}
		published, _ := time.Parse(time.RFC3339, a.PublishedAt)
		out = append(out, domain.Development{
			Title:       a.Title,
			Source:      a.Source.Name,
			URL:         a.URL,
			Description: desc,
			PublishedAt: published,
		})
	}
	return out, nil
}
