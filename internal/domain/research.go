package domain

import "time"

// Development is a recent news item gathered for a topic.
type Development struct {
	Title       string
	Source      string
	URL         string
	Description string
	PublishedAt time.Time
}

// ResearchBundle aggregates facts and news gathered before generation.
type ResearchBundle struct {
	Topic              string
	KeyFacts           []string
	RecentDevelopments []Development
	RelatedTerms       []string
	Sources            []string
	ResearchedAt       time.Time
}

// IsEmpty reports whether the bundle carries nothing to write about.
func (b ResearchBundle) IsEmpty() bool {
	return len(b.KeyFacts) == 0 && len(b.RecentDevelopments) == 0
}

// AddSource appends a source name unless it is already present.
func (b *ResearchBundle) AddSource(name string) {
	if name == "" {
		return
	}
	for _, s := range b.Sources {
		if s == name {
			return
		}
	}
	b.Sources = append(b.Sources, name)
}
