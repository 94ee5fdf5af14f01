package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Idea is a candidate blog topic surfaced by an external collector.
type Idea struct {
	Title       string `validate:"required"`
	Source      string `validate:"required"`
	Score       float64
	Link        string `validate:"omitempty,url"`
	Summary     string
	PublishedAt time.Time
}

// NewIdea trims and validates the required fields of an idea.
func NewIdea(title, source string, score float64) (Idea, error) {
	idea := Idea{
		Title:  strings.TrimSpace(title),
		Source: strings.TrimSpace(source),
		Score:  score,
	}
	if err := idea.Validate(); err != nil {
		return Idea{}, err
	}
	return idea, nil
}

// Validate checks struct constraints; optional fields may stay empty.
func (i Idea) Validate() error {
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("invalid idea %q: %w", i.Title, err)
	}
	return nil
}

// PostType enumerates the prompt families for curated topics.
type PostType string

const (
	PostListicle PostType = "listicle"
	PostGuide    PostType = "guide"
	PostSummary  PostType = "summary"
	PostArticle  PostType = "article"
)

// Topic is a curated entry from topics.yml or a topic derived from an idea.
type Topic struct {
	Title     string   `validate:"required"`
	PostType  PostType `validate:"required,oneof=listicle guide summary article"`
	Category  string   `validate:"required"`
	Keywords  []string
	WordCount int `validate:"gte=0"`
}

// Validate checks the required topic fields.
func (t Topic) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid topic %q: %w", t.Title, err)
	}
	return nil
}

// TopicFromIdea converts a collected idea into a research-driven topic.
func TopicFromIdea(idea Idea, category string) Topic {
	return Topic{
		Title:     idea.Title,
		PostType:  PostArticle,
		Category:  category,
		WordCount: 800,
	}
}
