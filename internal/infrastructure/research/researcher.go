// Package research gathers facts and recent news for a topic before
// generation.
package research

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/ports"
)

// Researcher merges Wikipedia facts and NewsAPI articles into one bundle.
// Both lookups fail soft; results are cached per topic.
type Researcher struct {
	wiki   *WikipediaClient
	news   *NewsClient
	cache  *cache.Cache
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.Researcher = (*Researcher)(nil)

// NewResearcher wires the sources. news may be nil when no API key is set.
func NewResearcher(wiki *WikipediaClient, news *NewsClient, ttl time.Duration, logger *slog.Logger) *Researcher {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &Researcher{
		wiki:   wiki,
		news:   news,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger.With("component", "researcher"),
		now:    time.Now,
	}
}

// Research runs both lookups concurrently. It only returns an error when ctx
// is done; an empty bundle means nothing was found.
func (r *Researcher) Research(ctx context.Context, topic string) (domain.ResearchBundle, error) {
	key := strings.ToLower(strings.TrimSpace(topic))
	if cached, ok := r.cache.Get(key); ok {
		r.logger.Debug("research cache hit", "topic", topic)
		return cached.(domain.ResearchBundle), nil
	}

	var (
		facts WikiFacts
		news  []domain.Development
	)

	g, gctx := errgroup.WithContext(ctx)
	if r.wiki != nil {
		g.Go(func() error {
			res, err := r.wiki.Research(gctx, topic)
			if err != nil {
				r.logger.Warn("wikipedia research failed", "topic", topic, "error", err)
				return nil
			}
			facts = res
			return nil
		})
	}
	if r.news != nil {
		g.Go(func() error {
			res, err := r.news.Recent(gctx, topic)
			if err != nil {
				r.logger.Warn("news research failed", "topic", topic, "error", err)
				return nil
			}
			news = res
			return nil
		})
	} else {
		r.logger.Debug("news api not configured, skipping", "topic", topic)
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return domain.ResearchBundle{}, err
	}

	bundle := domain.ResearchBundle{
		Topic:              topic,
		KeyFacts:           facts.Facts,
		RecentDevelopments: news,
		RelatedTerms:       facts.RelatedTerms,
		ResearchedAt:       r.now(),
	}
	bundle.AddSource(facts.Source)
	for _, d := range news {
		bundle.AddSource(d.Source)
	}

	r.logger.Info("research completed", "topic", topic,
		"facts", len(bundle.KeyFacts), "news", len(bundle.RecentDevelopments))

	if !bundle.IsEmpty() {
		r.cache.SetDefault(key, bundle)
	}
	return bundle, nil
}
