package collector

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/infrastructure/fetch"
	"AutoBlog/internal/scanner"
)

const (
	arxivBaseURL     = "https://arxiv.org"
	defaultPageSize  = 200
	defaultArxivDays = 7
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ArxivScanner crawls arXiv listing pages and turns recent papers into ideas.
type ArxivScanner struct {
	client   *fetch.Client
	pageSize int
}

var _ scanner.Scanner = (*ArxivScanner)(nil)

// NewArxivScanner wires a fetch client; pageSize defaults to 200.
func NewArxivScanner(client *fetch.Client) *ArxivScanner {
	if client == nil {
		client = fetch.New(nil)
	}
	return &ArxivScanner{client: client, pageSize: defaultPageSize}
}

// Name identifies the strategy inside the registry.
func (a *ArxivScanner) Name() string {
	return "arxiv"
}

// Scan walks each listing and returns papers announced within the window
// given by the "days" option (default 7).
func (a *ArxivScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Idea, error) {
	if len(req.Channels) == 0 {
		return nil, fmt.Errorf("no channels provided for source %s", req.SourceName)
	}

	days := optionInt(req.Options, "days", defaultArxivDays)
	cutoff := req.Now.UTC().Truncate(24*time.Hour).AddDate(0, 0, -days)
	results := make([]domain.Idea, 0)
	seen := map[string]struct{}{}

	for _, ch := range req.Channels {
		skip := 0
		for {
			pageURL, err := buildPageURL(ch.URL, skip, a.pageSize)
			if err != nil {
				return nil, fmt.Errorf("channel %s: %w", ch.Name, err)
			}

			doc, err := a.client.Document(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("channel %s: %w", ch.Name, err)
			}

			ideas, shouldContinue := a.extractIdeas(doc, cutoff, req.SourceName, ch.Name)
			for _, idea := range ideas {
				if _, ok := seen[idea.Link]; ok {
					continue
				}
				seen[idea.Link] = struct{}{}
				results = append(results, idea)
			}

			if !shouldContinue {
				break
			}
			skip += a.pageSize
		}
	}

	return results, nil
}

func (a *ArxivScanner) extractIdeas(doc *goquery.Document, cutoff time.Time, sourceName, channel string) ([]domain.Idea, bool) {
	var (
		collected    []domain.Idea
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		idea, ok := parseEntry(dt, dd, sourceName, channel)
		if !ok {
			return true
		}
		if idea.PublishedAt.Before(cutoff) {
			continueScan = false
			return false
		}
		collected = append(collected, idea)
		return true
	})

	if processed < a.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func parseEntry(dt, dd *goquery.Selection, sourceName, channel string) (domain.Idea, bool) {
	link := dt.Find("a[href*=\"/abs/\"]").First()
	href, _ := link.Attr("href")
	if href != "" && !strings.HasPrefix(href, "http") {
		href = strings.TrimSuffix(arxivBaseURL, "/") + href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return domain.Idea{}, false
	}

	summary := dd.Find("p.mathjax").First().Text()
	summary = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(summary), "Abstract:"))

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	publishedAt := time.Now().UTC()
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed
		}
	}

	source := sourceName
	if channel != "" {
		source = fmt.Sprintf("%s/%s", sourceName, channel)
	}

	return domain.Idea{
		Title:       title,
		Source:      source,
		Link:        href,
		Summary:     truncateSummary(summary),
		PublishedAt: publishedAt,
	}, true
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid channel url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func optionInt(opts map[string]string, key string, def int) int {
	if v, ok := opts[key]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return def
}
