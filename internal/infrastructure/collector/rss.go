package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/infrastructure/fetch"
	"AutoBlog/internal/scanner"
)

const (
	maxEntriesPerFeed = 10
	feedWindow        = 7 * 24 * time.Hour
	summaryLimit      = 200
)

// RSSScanner reads RSS and Atom feeds.
type RSSScanner struct {
	client *fetch.Client
	logger *slog.Logger
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires a fetch client.
func NewRSSScanner(client *fetch.Client, logger *slog.Logger) *RSSScanner {
	if client == nil {
		client = fetch.New(logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RSSScanner{client: client, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string { return "rss" }

// Scan reads the first ten entries of every feed and keeps those published
// in the last seven days. Entries without a date are kept. A feed that fails
// is logged and skipped; the scan fails only when every feed failed.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Idea, error) {
	if len(req.Channels) == 0 {
		return nil, fmt.Errorf("no feeds provided for source %s", req.SourceName)
	}

	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := now.Add(-feedWindow)
	// gofeed parsers keep per-document state
	parser := gofeed.NewParser()

	var (
		ideas    []domain.Idea
		failures int
		lastErr  error
	)
	for _, ch := range req.Channels {
		body, err := s.client.Get(ctx, ch.URL)
		if err != nil {
			failures++
			lastErr = err
			s.logger.Error("fetch feed failed", "feed", ch.URL, "error", err)
			continue
		}
		feed, err := parser.ParseString(string(body))
		if err != nil {
			failures++
			lastErr = err
			s.logger.Error("parse feed failed", "feed", ch.URL, "error", err)
			continue
		}

		kept := 0
		for _, item := range feed.Items[:min(len(feed.Items), maxEntriesPerFeed)] {
			idea, ok := itemToIdea(item, ch.URL, cutoff)
			if !ok {
				continue
			}
			ideas = append(ideas, idea)
			kept++
		}
		s.logger.Debug("feed scanned", "feed", ch.URL, "format", feed.FeedType, "entries", len(feed.Items), "kept", kept)
	}

	if failures == len(req.Channels) {
		return nil, fmt.Errorf("all %d feeds failed: %w", failures, lastErr)
	}
	return ideas, nil
}

func itemToIdea(item *gofeed.Item, feedURL string, cutoff time.Time) (domain.Idea, bool) {
	title := fetch.StripHTML(item.Title)
	if title == "" {
		return domain.Idea{}, false
	}

	var published time.Time
	if t := itemDate(item); t != nil {
		if t.Before(cutoff) {
			return domain.Idea{}, false
		}
		published = *t
	}

	link := strings.TrimSpace(item.Link)
	if u, err := url.Parse(link); err != nil || u.Scheme == "" || u.Host == "" {
		link = ""
	}

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}

	return domain.Idea{
		Title:       title,
		Source:      feedURL,
		Link:        link,
		Summary:     truncateSummary(fetch.StripHTML(summary)),
		PublishedAt: published,
	}, true
}

// itemDate prefers the publication date and falls back to the update date
// for Atom entries that only carry <updated>.
func itemDate(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

func truncateSummary(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) > summaryLimit {
		r = r[:summaryLimit]
	}
	return string(r) + "..."
}
