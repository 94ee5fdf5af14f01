// Package dedup rejects candidate titles that repeat already published posts.
package dedup

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"AutoBlog/internal/ports"
	"AutoBlog/internal/similarity"
)

const (
	DefaultSimilarityThreshold = 0.7
	DefaultKeywordThreshold    = 0.6

	recentWindow = 7 * 24 * time.Hour
)

// Options tunes the two duplicate gates.
type Options struct {
	SimilarityThreshold float64
	KeywordThreshold    float64
}

// Deduplicator checks titles against the corpus. The corpus is re-read on
// every call so decisions always reflect the current post directory.
type Deduplicator struct {
	corpus     ports.CorpusStore
	similarity float64
	keyword    float64
	logger     *slog.Logger
	now        func() time.Time
}

var _ ports.DuplicateChecker = (*Deduplicator)(nil)

// New builds a deduplicator; zero thresholds fall back to the defaults.
func New(corpus ports.CorpusStore, opts Options, logger *slog.Logger) *Deduplicator {
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if opts.KeywordThreshold <= 0 {
		opts.KeywordThreshold = DefaultKeywordThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{
		corpus:     corpus,
		similarity: opts.SimilarityThreshold,
		keyword:    opts.KeywordThreshold,
		logger:     logger,
		now:        time.Now,
	}
}

// Match explains why a title was rejected.
type Match struct {
	Existing string
	Gate     string
	Score    float64
}

// CheckDuplicates reports whether title repeats a published post. A corpus
// that cannot be read never blocks publication.
func (d *Deduplicator) CheckDuplicates(ctx context.Context, title string) bool {
	match, found := d.FindDuplicate(ctx, title)
	if found {
		d.logger.Warn("duplicate detected",
			"title", title, "existing", match.Existing, "gate", match.Gate, "score", match.Score)
	}
	return found
}

// FindDuplicate is CheckDuplicates with the matching post attached.
func (d *Deduplicator) FindDuplicate(ctx context.Context, title string) (Match, bool) {
	posts, err := d.corpus.LoadPosts(ctx)
	if err != nil {
		d.logger.Error("load published posts failed, accepting title", "title", title, "error", err)
		return Match{}, false
	}
	if len(posts) == 0 {
		d.logger.Debug("empty corpus, accepting title", "title", title)
		return Match{}, false
	}

	existing := make([]string, 0, len(posts))
	for _, post := range posts {
		existing = append(existing, post.Title)
	}
	if match, found := d.match(title, existing); found {
		return match, true
	}

	d.logger.Debug("no duplicates", "title", title, "corpus", len(posts))
	return Match{}, false
}

// MatchesAny applies the corpus gates to titles that are not on disk, such
// as the ones accepted earlier in a dry run.
func (d *Deduplicator) MatchesAny(title string, titles []string) bool {
	match, found := d.match(title, titles)
	if found {
		d.logger.Warn("duplicate of an earlier title in this run",
			"title", title, "existing", match.Existing, "gate", match.Gate, "score", match.Score)
	}
	return found
}

// match runs the similarity gate over every title before the keyword gate.
func (d *Deduplicator) match(title string, titles []string) (Match, bool) {
	for _, existing := range titles {
		if score := similarity.Ratio(title, existing); score >= d.similarity {
			return Match{Existing: existing, Gate: "similarity", Score: score}, true
		}
	}

	candidate := similarity.Keywords(title)
	if len(candidate) == 0 {
		return Match{}, false
	}
	for _, existing := range titles {
		words := similarity.Keywords(existing)
		if len(words) == 0 {
			continue
		}
		if score := similarity.Overlap(candidate, words); score >= d.keyword {
			return Match{Existing: existing, Gate: "keywords", Score: score}, true
		}
	}
	return Match{}, false
}

// RecentPost is a post published inside the recent window.
type RecentPost struct {
	Title string
	Date  string
}

// Stats summarises the corpus the deduplicator checks against.
type Stats struct {
	TotalPosts  int
	PostsByDate map[string]int
	RecentPosts []RecentPost
}

// Stats reports total posts, posts per day and the last seven days.
func (d *Deduplicator) Stats(ctx context.Context) (Stats, error) {
	posts, err := d.corpus.LoadPosts(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{TotalPosts: len(posts), PostsByDate: map[string]int{}}
	cutoff := d.now().Add(-recentWindow)
	for _, post := range posts {
		if post.Date.IsZero() {
			continue
		}
		day := post.Date.Format(time.DateOnly)
		stats.PostsByDate[day]++
		if !post.Date.Before(cutoff) {
			title := post.Title
			if title == "" {
				title = "Untitled"
			}
			stats.RecentPosts = append(stats.RecentPosts, RecentPost{Title: title, Date: day})
		}
	}

	sort.SliceStable(stats.RecentPosts, func(i, j int) bool {
		return stats.RecentPosts[i].Date > stats.RecentPosts[j].Date
	})
	return stats, nil
}
