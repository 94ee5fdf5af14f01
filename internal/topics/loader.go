// Package topics loads the curated topic list used by the once and seed modes.
package topics

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/ports"
)

const (
	defaultCategory  = "general"
	defaultWordCount = 800
	minWordCount     = 300
	maxWordCount     = 2000
)

type rawTopic struct {
	Title     string    `yaml:"title"`
	PostType  string    `yaml:"post_type"`
	Category  string    `yaml:"category"`
	Keywords  yaml.Node `yaml:"keywords"`
	WordCount yaml.Node `yaml:"word_count"`
}

type topicsFile struct {
	Topics []rawTopic `yaml:"topics"`
}

// Loader reads topics.yml.
type Loader struct {
	path   string
	logger *slog.Logger
}

var _ ports.TopicSource = (*Loader)(nil)

// NewLoader returns a loader for path.
func NewLoader(path string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{path: path, logger: logger}
}

// Load parses the file and returns every valid topic. Invalid entries are
// skipped with a warning.
func (l *Loader) Load() ([]domain.Topic, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read topics file: %w", err)
	}

	var file topicsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse topics file %s: %w", l.path, err)
	}
	if len(file.Topics) == 0 {
		l.logger.Warn("no topics found", "path", l.path)
		return nil, nil
	}

	topics := make([]domain.Topic, 0, len(file.Topics))
	for i, entry := range file.Topics {
		topic, err := l.normalize(entry, i)
		if err != nil {
			l.logger.Warn("skipping invalid topic", "index", i, "error", err)
			continue
		}
		topics = append(topics, topic)
	}

	l.logger.Info("topics loaded", "count", len(topics), "path", l.path)
	return topics, nil
}

func (l *Loader) normalize(entry rawTopic, index int) (domain.Topic, error) {
	title := strings.TrimSpace(entry.Title)
	postType := strings.ToLower(strings.TrimSpace(entry.PostType))
	if title == "" {
		return domain.Topic{}, fmt.Errorf("missing required field 'title' in topic %d", index)
	}
	if postType == "" {
		return domain.Topic{}, fmt.Errorf("missing required field 'post_type' in topic %d", index)
	}

	switch domain.PostType(postType) {
	case domain.PostListicle, domain.PostGuide, domain.PostSummary:
	default:
		l.logger.Warn("unknown post type, using guide", "index", index, "post_type", postType)
		postType = string(domain.PostGuide)
	}

	category := strings.TrimSpace(entry.Category)
	if category == "" {
		category = defaultCategory
	}

	topic := domain.Topic{
		Title:     title,
		PostType:  domain.PostType(postType),
		Category:  category,
		Keywords:  decodeKeywords(&entry.Keywords),
		WordCount: decodeWordCount(&entry.WordCount),
	}
	if err := topic.Validate(); err != nil {
		return domain.Topic{}, err
	}
	return topic, nil
}

// decodeKeywords accepts either a YAML list or a comma separated string.
func decodeKeywords(node *yaml.Node) []string {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return nil
		}
		return list
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
		parts := strings.Split(node.Value, ",")
		keywords := make([]string, 0, len(parts))
		for _, p := range parts {
			keywords = append(keywords, strings.TrimSpace(p))
		}
		return keywords
	default:
		return nil
	}
}

// decodeWordCount clamps the target length to [300, 2000]; anything that is
// not a number falls back to 800.
func decodeWordCount(node *yaml.Node) int {
	if node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		return defaultWordCount
	}

	n, err := strconv.Atoi(strings.TrimSpace(node.Value))
	if err != nil {
		f, ferr := strconv.ParseFloat(strings.TrimSpace(node.Value), 64)
		if ferr != nil || node.Tag == "!!str" {
			return defaultWordCount
		}
		n = int(f)
	}
	return min(max(n, minWordCount), maxWordCount)
}

// Stats counts topics per category and per post type.
type Stats struct {
	Total      int
	Categories map[string]int
	Types      map[domain.PostType]int
}

// ComputeStats summarises topics.
func ComputeStats(topics []domain.Topic) Stats {
	stats := Stats{Total: len(topics), Categories: map[string]int{}, Types: map[domain.PostType]int{}}
	for _, t := range topics {
		stats.Categories[t.Category]++
		stats.Types[t.PostType]++
	}
	return stats
}

// ByCategory filters topics by category.
func ByCategory(topics []domain.Topic, category string) []domain.Topic {
	var out []domain.Topic
	for _, t := range topics {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// ByType filters topics by post type.
func ByType(topics []domain.Topic, postType domain.PostType) []domain.Topic {
	var out []domain.Topic
	for _, t := range topics {
		if t.PostType == postType {
			out = append(out, t)
		}
	}
	return out
}
