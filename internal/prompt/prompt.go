// Package prompt loads generation templates and fills their placeholders.
package prompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"AutoBlog/internal/domain"
)

//go:embed templates/*.txt
var defaults embed.FS

// Template names beyond the post types.
const (
	Research = "research"
	SEOMeta  = "seo_meta"
)

const (
	maxFacts      = 3
	maxNews       = 2
	maxSources    = 3
	defaultWords  = 800
	untitledTopic = "Untitled"
)

// Library resolves templates from a directory, falling back to the built-in
// set when a file is missing.
type Library struct {
	dir    string
	logger *slog.Logger
}

// NewLibrary creates a library; an empty dir uses only the built-in templates.
func NewLibrary(dir string, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{dir: dir, logger: logger}
}

// Load returns the template called post_<name>.txt.
func (l *Library) Load(name string) (string, error) {
	file := "post_" + name + ".txt"
	if l.dir != "" {
		raw, err := os.ReadFile(filepath.Join(l.dir, file))
		switch {
		case err == nil:
			return strings.TrimSpace(string(raw)), nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("read template %s: %w", file, err)
		}
		l.logger.Debug("template not in prompts dir, using built-in", "template", name)
	}

	raw, err := defaults.ReadFile("templates/" + file)
	if err != nil {
		return "", fmt.Errorf("unknown template %q", name)
	}
	return strings.TrimSpace(string(raw)), nil
}

// ForTopic picks the template for a topic: research driven topics use the
// research template, curated topics their post type.
func (l *Library) ForTopic(topic domain.Topic) (string, error) {
	if topic.PostType == domain.PostArticle {
		return l.Load(Research)
	}
	return l.Load(string(topic.PostType))
}

// Vars are the values substituted into a template.
type Vars struct {
	Title           string
	Category        string
	Keywords        []string
	WordCount       int
	Content         string
	ResearchSummary string
}

// VarsForTopic fills Vars from a topic.
func VarsForTopic(topic domain.Topic) Vars {
	return Vars{
		Title:     topic.Title,
		Category:  topic.Category,
		Keywords:  topic.Keywords,
		WordCount: topic.WordCount,
	}
}

// Format replaces {title}, {category}, {keywords}, {word_count}, {content} and
// {research_summary}. Other braces are left untouched.
func Format(template string, v Vars) string {
	title := v.Title
	if title == "" {
		title = untitledTopic
	}
	category := v.Category
	if category == "" {
		category = "general"
	}
	words := v.WordCount
	if words <= 0 {
		words = defaultWords
	}

	return strings.NewReplacer(
		"{title}", title,
		"{category}", category,
		"{keywords}", strings.Join(v.Keywords, ", "),
		"{word_count}", strconv.Itoa(words),
		"{content}", v.Content,
		"{research_summary}", v.ResearchSummary,
	).Replace(template)
}

// Summarize renders the parts of a research bundle that go into a prompt.
func Summarize(b domain.ResearchBundle) string {
	var sb strings.Builder

	if len(b.KeyFacts) > 0 {
		sb.WriteString("Key facts:\n")
		for i, fact := range b.KeyFacts {
			if i == maxFacts {
				break
			}
			fmt.Fprintf(&sb, "- %s\n", fact)
		}
	}

	if len(b.RecentDevelopments) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Recent developments:\n")
		for i, dev := range b.RecentDevelopments {
			if i == maxNews {
				break
			}
			line := dev.Title
			if dev.Source != "" {
				line += " (" + dev.Source + ")"
			}
			if dev.Description != "" {
				line += ": " + dev.Description
			}
			fmt.Fprintf(&sb, "- %s\n", line)
		}
	}

	if len(b.Sources) > 0 {
		sources := b.Sources
		if len(sources) > maxSources {
			sources = sources[:maxSources]
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Sources: %s\n", strings.Join(sources, ", "))
	}

	return strings.TrimRight(sb.String(), "\n")
}
