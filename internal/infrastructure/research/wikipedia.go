package research

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"AutoBlog/internal/infrastructure/fetch"
)

const (
	searchLimit       = 3
	relatedTermsLimit = 10
	minSentenceLen    = 20
)

// LookupKind tags the outcome of a page lookup.
type LookupKind int

const (
	LookupNotFound LookupKind = iota
	LookupFound
	LookupAmbiguous
)

// Page is a resolved Wikipedia article.
type Page struct {
	Title   string
	URL     string
	Summary string
	Links   []string
}

// Lookup is the tagged result of resolving a title: Page is set for
// LookupFound, Candidates for LookupAmbiguous.
type Lookup struct {
	Kind       LookupKind
	Page       Page
	Candidates []string
}

// WikiFacts is what the researcher takes from Wikipedia.
type WikiFacts struct {
	Facts        []string
	RelatedTerms []string
	Source       string
}

// WikipediaClient talks to the MediaWiki action API.
type WikipediaClient struct {
	endpoint string
	client   *fetch.Client
}

// NewWikipediaClient targets endpoint, e.g. https://en.wikipedia.org/w/api.php.
func NewWikipediaClient(endpoint string, client *fetch.Client) *WikipediaClient {
	if client == nil {
		client = fetch.New(nil)
	}
	return &WikipediaClient{endpoint: endpoint, client: client}
}

type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

type pageResponse struct {
	Query struct {
		Pages map[string]struct {
			Title     string            `json:"title"`
			Missing   *string           `json:"missing"`
			Extract   string            `json:"extract"`
			FullURL   string            `json:"fullurl"`
			PageProps map[string]string `json:"pageprops"`
			Links     []struct {
				Title string `json:"title"`
			} `json:"links"`
		} `json:"pages"`
	} `json:"query"`
}

// Search returns up to three page titles matching query.
func (w *WikipediaClient) Search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {fmt.Sprint(searchLimit)},
		"format":   {"json"},
	}
	var resp searchResponse
	if err := w.client.JSON(ctx, w.endpoint+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("wikipedia search: %w", err)
	}
	titles := make([]string, 0, len(resp.Query.Search))
	for _, r := range resp.Query.Search {
		titles = append(titles, r.Title)
	}
	return titles, nil
}

// Lookup resolves title to a page, a disambiguation list or nothing.
func (w *WikipediaClient) Lookup(ctx context.Context, title string) (Lookup, error) {
	params := url.Values{
		"action":    {"query"},
		"prop":      {"extracts|pageprops|links|info"},
		"exintro":   {"1"},
		"inprop":    {"url"},
		"ppprop":    {"disambiguation"},
		"pllimit":   {"max"},
		"redirects": {"1"},
		"titles":    {title},
		"format":    {"json"},
	}
	var resp pageResponse
	if err := w.client.JSON(ctx, w.endpoint+"?"+params.Encode(), &resp); err != nil {
		return Lookup{}, fmt.Errorf("wikipedia page %q: %w", title, err)
	}

	for _, p := range resp.Query.Pages {
		if p.Missing != nil {
			return Lookup{Kind: LookupNotFound}, nil
		}
		links := make([]string, 0, len(p.Links))
		for _, l := range p.Links {
			links = append(links, l.Title)
		}
		if _, ok := p.PageProps["disambiguation"]; ok {
			return Lookup{Kind: LookupAmbiguous, Candidates: links}, nil
		}
		return Lookup{Kind: LookupFound, Page: Page{
			Title:   p.Title,
			URL:     p.FullURL,
			Summary: fetch.StripHTML(p.Extract),
			Links:   links,
		}}, nil
	}
	return Lookup{Kind: LookupNotFound}, nil
}

// Research searches for topic and extracts facts from the best match. A
// disambiguation page is followed once through its first candidate.
func (w *WikipediaClient) Research(ctx context.Context, topic string) (WikiFacts, error) {
	titles, err := w.Search(ctx, topic)
	if err != nil {
		return WikiFacts{}, err
	}
	if len(titles) == 0 {
		return WikiFacts{}, nil
	}

	res, err := w.Lookup(ctx, titles[0])
	if err != nil {
		return WikiFacts{}, err
	}

	switch res.Kind {
	case LookupFound:
		return WikiFacts{
			Facts:        sentences(res.Page.Summary, 3),
			RelatedTerms: res.Page.Links[:min(len(res.Page.Links), relatedTermsLimit)],
			Source:       "Wikipedia: " + res.Page.Title,
		}, nil
	case LookupAmbiguous:
		if len(res.Candidates) == 0 {
			return WikiFacts{}, nil
		}
		second, err := w.Lookup(ctx, res.Candidates[0])
		if err != nil {
			return WikiFacts{}, err
		}
		if second.Kind != LookupFound {
			return WikiFacts{}, nil
		}
		return WikiFacts{
			Facts:  sentences(second.Page.Summary, 2),
			Source: "Wikipedia: " + second.Page.Title,
		}, nil
	default:
		return WikiFacts{}, nil
	}
}

// sentences splits on ". ", takes the first n parts and keeps those longer
// than 20 characters, each ending in a period.
func sentences(summary string, n int) []string {
	parts := strings.Split(summary, ". ")
	var out []string
	for _, s := range parts[:min(len(parts), n)] {
		s = strings.TrimSpace(s)
		if len([]rune(s)) <= minSentenceLen {
			continue
		}
		if !strings.HasSuffix(s, ".") {
			s += "."
		}
		out = append(out, s)
	}
	return out
}
