// Package seo derives slugs, keywords, categories and meta descriptions and
// renders the Jekyll front matter of a post.
package seo

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/ports"
	"AutoBlog/internal/prompt"
	"AutoBlog/internal/retry"
)

const (
	maxTitleLength       = 60
	maxDescriptionLength = 160
	metaExcerptLength    = 1000
	metaMaxTokens        = 300
	metaTemperature      = 0.5
	enoughDescription    = 100
	minFallbackLine      = 50

	// DateLayout is the front matter date format.
	DateLayout = "2006-01-02 15:04:05 -0700"
)

// Options configures the builder.
type Options struct {
	Author   string
	Location *time.Location
}

// Builder turns generated content into a publishable draft.
type Builder struct {
	generator ports.Generator
	prompts   *prompt.Library
	policy    *retry.Policy
	author    string
	location  *time.Location
	logger    *slog.Logger
	now       func() time.Time
}

var _ ports.PostBuilder = (*Builder)(nil)

// NewBuilder wires the builder. A nil generator disables AI meta descriptions
// and always uses the fallback text.
func NewBuilder(generator ports.Generator, prompts *prompt.Library, policy *retry.Policy, opts Options, logger *slog.Logger) *Builder {
	if opts.Author == "" {
		opts.Author = "AutoBot"
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	if prompts == nil {
		prompts = prompt.NewLibrary("", logger)
	}
	return &Builder{
		generator: generator,
		prompts:   prompts,
		policy:    policy,
		author:    opts.Author,
		location:  opts.Location,
		logger:    logger,
		now:       time.Now,
	}
}

type seoMeta struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Keywords    string `yaml:"keywords"`
}

type frontMatter struct {
	Layout     string   `yaml:"layout"`
	Title      string   `yaml:"title"`
	Date       string   `yaml:"date"`
	Categories []string `yaml:"categories"`
	Tags       []string `yaml:"tags"`
	Excerpt    string   `yaml:"excerpt"`
	Slug       string   `yaml:"slug"`
	Author     string   `yaml:"author"`
	SEO        seoMeta  `yaml:"seo"`
}

// BuildPost renders front matter for content and returns the full draft. A
// curated category is kept; otherwise the post is categorised from its title
// and keywords.
func (b *Builder) BuildPost(ctx context.Context, topic domain.Topic, content string) (domain.Draft, error) {
	title := strings.TrimSpace(topic.Title)
	if title == "" {
		return domain.Draft{}, fmt.Errorf("build post: empty title")
	}

	now := b.now().In(b.location)
	slug := Slug(title)
	keywords := Keywords(content, topic.Keywords)
	description := b.MetaDescription(ctx, title, content, keywords)

	category := topic.Category
	if category == "" || category == DefaultCategory {
		category = Categorize(title, keywords)
	}

	fm := frontMatter{
		Layout:     "post",
		Title:      title,
		Date:       now.Format(DateLayout),
		Categories: []string{category},
		Tags:       keywords,
		Excerpt:    description,
		Slug:       slug,
		Author:     b.author,
		SEO: seoMeta{
			Title:       truncate(title, maxTitleLength),
			Description: description,
			Keywords:    strings.Join(keywords, ", "),
		},
	}
	if fm.Tags == nil {
		fm.Tags = []string{}
	}

	raw, err := yaml.Marshal(fm)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("marshal front matter: %w", err)
	}

	b.logger.Debug("front matter built", "title", title, "slug", slug, "category", category, "tags", len(keywords))
	return domain.Draft{
		Title:    title,
		Category: category,
		PostType: topic.PostType,
		Tags:     keywords,
		Date:     now,
		Slug:     slug,
		Body:     "---\n" + string(raw) + "---\n\n" + content,
	}, nil
}

// MetaDescription asks the generator for a search snippet and falls back to a
// template sentence when the call or the parsing fails.
func (b *Builder) MetaDescription(ctx context.Context, title, content string, keywords []string) string {
	if b.generator == nil {
		return fallbackDescription(title, keywords)
	}

	template, err := b.prompts.Load(prompt.SEOMeta)
	if err != nil {
		b.logger.Warn("seo template unavailable", "error", err)
		return fallbackDescription(title, keywords)
	}
	text := prompt.Format(template, prompt.Vars{
		Title:    title,
		Keywords: keywords,
		Content:  truncateRunes(content, metaExcerptLength),
	})

	response, _, err := retry.Execute(ctx, b.policy, func(ctx context.Context) (string, error) {
		return b.generator.Generate(ctx, text, title,
			ports.WithMaxTokens(metaMaxTokens), ports.WithTemperature(metaTemperature))
	})
	if err != nil {
		b.logger.Warn("meta description generation failed, using fallback", "title", title, "error", err)
		return fallbackDescription(title, keywords)
	}

	description := parseMetaDescription(response)
	if description == "" {
		return fallbackDescription(title, keywords)
	}
	return truncate(description, maxDescriptionLength)
}

func parseMetaDescription(response string) string {
	lines := strings.Split(response, "\n")

	var collected []string
	inSection := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "Meta Description") || strings.Contains(line, "메타 설명") {
			inSection = true
			continue
		}
		if !inSection {
			continue
		}
		if strings.HasPrefix(line, "#") {
			break
		}
		if line == "" || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
			continue
		}
		collected = append(collected, line)
		if len([]rune(strings.Join(collected, " "))) > enoughDescription {
			break
		}
	}
	if len(collected) > 0 {
		return stripQuotes(strings.Join(collected, " "))
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len([]rune(line)) > minFallbackLine && !strings.HasPrefix(line, "#") {
			return stripQuotes(line)
		}
	}
	return ""
}

func stripQuotes(s string) string {
	if strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "'") {
		s = s[1:]
	}
	if strings.HasSuffix(s, `"`) || strings.HasSuffix(s, "'") {
		s = s[:len(s)-1]
	}
	return strings.TrimSpace(s)
}

var fallbackTemplates = []string{
	"A detailed guide to %[1]s, with practical information on %[2]s.",
	"The latest information and tips on %[2]s. Learn more in %[1]s.",
	"Practical, useful information about %[1]s. Explore everything related to %[2]s.",
}

func fallbackDescription(title string, keywords []string) string {
	topics := "useful information"
	if len(keywords) > 0 {
		n := min(len(keywords), 3)
		topics = strings.Join(keywords[:n], ", ")
	}
	tpl := fallbackTemplates[rand.IntN(len(fallbackTemplates))]
	return truncate(fmt.Sprintf(tpl, title, topics), maxDescriptionLength)
}

// truncate shortens s to limit runes, ending with "..." when cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
