package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"AutoBlog/internal/config"
	"AutoBlog/internal/domain"
	"AutoBlog/internal/ports"
	"AutoBlog/internal/scanner"
)

const (
	maxIdeas             = 10
	ideaOverlapThreshold = 0.7
)

var techKeywords = []string{
	"ai", "artificial intelligence", "machine learning", "blockchain", "cloud",
	"cybersecurity", "iot", "5g", "quantum", "automation", "robot", "data",
	"digital", "technology", "software", "app", "platform", "development",
	"innovation", "startup", "coding", "programming", "tech", "virtual",
	"augmented", "mobile", "web", "api", "database", "security", "crypto",
}

// ErrNoSources is returned when no source is configured.
var ErrNoSources = errors.New("no idea sources configured")

// StrategySource implements ports.IdeaSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.IdeaSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	if log == nil {
		log = slog.Default()
	}
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log.With("component", "collector"),
		now:      time.Now,
	}
}

// Collect runs every source, merges near-duplicate titles, scores the rest
// and returns the ten best. A failing source is skipped; Collect fails only
// when every source failed.
func (s *StrategySource) Collect(ctx context.Context) ([]domain.Idea, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	if len(s.sources) == 0 {
		return nil, ErrNoSources
	}

	now := s.now()
	s.logger.Info("collecting ideas", "sources", len(s.sources))

	var (
		aggregated []domain.Idea
		errs       []error
	)
	for _, src := range s.sources {
		strategy, err := s.registry.Resolve(src.Scanner)
		if err != nil {
			s.logger.Error("unknown scanner", "source", src.Name, "scanner", src.Scanner)
			errs = append(errs, fmt.Errorf("source %s: %w", src.Name, err))
			continue
		}

		req := scanner.Request{
			Now:        now,
			SourceName: src.Name,
			Options:    src.Options,
			Channels:   toChannels(src.Channels),
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Error("source failed", "source", src.Name, "error", err)
			errs = append(errs, fmt.Errorf("scan source %s: %w", src.Name, err))
			continue
		}

		for i := range results {
			if results[i].Source == "" {
				results[i].Source = src.Name
			}
		}
		s.logger.Debug("source produced ideas", "source", src.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	if len(errs) == len(s.sources) {
		return nil, fmt.Errorf("all idea sources failed: %w", errors.Join(errs...))
	}

	unique := DedupeIdeas(aggregated)
	for i := range unique {
		unique[i].Score = ScoreIdea(unique[i], now)
	}
	sort.SliceStable(unique, func(i, j int) bool { return unique[i].Score > unique[j].Score })
	if len(unique) > maxIdeas {
		unique = unique[:maxIdeas]
	}

	valid := unique[:0]
	for _, idea := range unique {
		if err := idea.Validate(); err != nil {
			s.logger.Warn("dropping invalid idea", "error", err)
			continue
		}
		valid = append(valid, idea)
	}

	s.logger.Info("ideas collected", "raw", len(aggregated), "unique", len(valid))
	return valid, nil
}

// DedupeIdeas keeps the first of any group of titles whose lowercase word
// sets overlap by more than 70%.
func DedupeIdeas(ideas []domain.Idea) []domain.Idea {
	var (
		kept     []domain.Idea
		keptSets []map[string]struct{}
	)
	for _, idea := range ideas {
		words := wordSet(idea.Title)
		duplicate := false
		for _, seen := range keptSets {
			if jaccard(words, seen) > ideaOverlapThreshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		kept = append(kept, idea)
		keptSets = append(keptSets, words)
	}
	return kept
}

// ScoreIdea rates an idea from 0 to 100: base 50, +10 per tech keyword found
// in the title or summary, +15 when published in the last three days, +5 for
// a 20 to 80 character title and -10 above 100 characters.
func ScoreIdea(idea domain.Idea, now time.Time) float64 {
	score := 50
	title := strings.ToLower(idea.Title)
	summary := strings.ToLower(idea.Summary)
	for _, kw := range techKeywords {
		if strings.Contains(title, kw) || strings.Contains(summary, kw) {
			score += 10
		}
	}

	if !idea.PublishedAt.IsZero() && now.Sub(idea.PublishedAt) <= 3*24*time.Hour {
		score += 15
	}

	switch n := len([]rune(idea.Title)); {
	case n >= 20 && n <= 80:
		score += 5
	case n > 100:
		score -= 10
	}

	return float64(min(score, 100))
}

func wordSet(title string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range strings.Fields(strings.ToLower(title)) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func toChannels(cfg []config.ChannelConfig) []scanner.Channel {
	channels := make([]scanner.Channel, 0, len(cfg))
	for _, ch := range cfg {
		channels = append(channels, scanner.Channel{
			Name: ch.Name,
			URL:  ch.URL,
		})
	}
	return channels
}
