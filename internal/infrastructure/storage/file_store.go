package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/ports"
)

const (
	frontMatterOpen  = "---\n"
	frontMatterClose = "\n---\n"
	fallbackSlug     = "blog-post"
)

var (
	datePrefix = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-`)

	dateLayouts = []string{
		"2006-01-02 15:04:05 -0700",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		time.DateOnly,
	}
)

// FileStore keeps posts as Jekyll Markdown files in one directory.
type FileStore struct {
	dir      string
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.CorpusStore = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir. Filenames use dates in loc.
func NewFileStore(dir string, loc *time.Location, logger *slog.Logger) *FileStore {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{dir: dir, location: loc, logger: logger, now: time.Now}
}

// Dir returns the posts directory.
func (s *FileStore) Dir() string { return s.dir }

type postHeader struct {
	Title      string    `yaml:"title"`
	Date       yaml.Node `yaml:"date"`
	Categories yaml.Node `yaml:"categories"`
	Tags       yaml.Node `yaml:"tags"`
}

// LoadPosts reads every *.md file. A missing directory is an empty corpus;
// unreadable or malformed files are skipped with a warning.
func (s *FileStore) LoadPosts(ctx context.Context) ([]domain.PublishedPost, error) {
	if _, err := os.Stat(s.dir); errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("posts directory does not exist yet", "dir", s.dir)
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("stat posts dir: %w", err)
	}

	paths, err := filepath.Glob(filepath.Join(s.dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	posts := make([]domain.PublishedPost, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		post, ok, err := s.readPost(path)
		if err != nil {
			s.logger.Warn("skipping unreadable post", "file", filepath.Base(path), "error", err)
			continue
		}
		if ok {
			posts = append(posts, post)
		}
	}

	s.logger.Debug("published posts loaded", "count", len(posts), "dir", s.dir)
	return posts, nil
}

func (s *FileStore) readPost(path string) (domain.PublishedPost, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.PublishedPost{}, false, err
	}
	name := filepath.Base(path)
	content := strings.ReplaceAll(string(raw), "\r\n", "\n")

	post := domain.PublishedPost{FileName: name}
	if m := datePrefix.FindStringSubmatch(name); m != nil {
		if d, err := time.ParseInLocation(time.DateOnly, m[1], s.location); err == nil {
			post.Date = d
		}
	}

	header, found, err := parseFrontMatter(content)
	if err != nil {
		return domain.PublishedPost{}, false, err
	}
	if found {
		post.Title = strings.TrimSpace(header.Title)
		if d, ok := parseDate(header.Date.Value, s.location); ok {
			post.Date = d
		}
		post.Categories = stringList(&header.Categories)
		post.Tags = stringList(&header.Tags)
		return post, true, nil
	}

	title := firstHeading(content)
	if title == "" {
		return domain.PublishedPost{}, false, nil
	}
	post.Title = title
	return post, true, nil
}

func parseFrontMatter(content string) (postHeader, bool, error) {
	if !strings.HasPrefix(content, frontMatterOpen) {
		return postHeader{}, false, nil
	}
	rest := content[len(frontMatterOpen):]

	var block string
	if !strings.HasPrefix(rest, "---\n") {
		end := strings.Index(rest, frontMatterClose)
		if end == -1 {
			return postHeader{}, false, nil
		}
		block = rest[:end]
	}

	var header postHeader
	if err := yaml.Unmarshal([]byte(block), &header); err != nil {
		return postHeader{}, false, fmt.Errorf("parse front matter: %w", err)
	}
	return header, true, nil
}

func firstHeading(content string) string {
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

func parseDate(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// stringList accepts a YAML list or a single (space separated) scalar, the
// two forms Jekyll understands for categories and tags.
func stringList(node *yaml.Node) []string {
	switch node.Kind {
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return nil
		}
		return out
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
		return strings.Fields(node.Value)
	default:
		return nil
	}
}

// SavePost writes draft.Body to YYYY-MM-DD-slug.md, appending -HHMMSS when the
// name is taken. The file appears atomically.
func (s *FileStore) SavePost(ctx context.Context, draft domain.Draft) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create posts dir: %w", err)
	}

	date := draft.Date
	if date.IsZero() {
		date = s.now()
	}
	slug := draft.Slug
	if slug == "" {
		slug = fallbackSlug
	}

	base := date.In(s.location).Format(time.DateOnly) + "-" + slug
	path := filepath.Join(s.dir, base+".md")
	if _, err := os.Stat(path); err == nil {
		s.logger.Warn("post file already exists, adding time suffix", "file", filepath.Base(path))
		path = filepath.Join(s.dir, base+"-"+s.now().In(s.location).Format("150405")+".md")
	}

	if err := writeAtomic(path, []byte(draft.Body)); err != nil {
		return "", fmt.Errorf("save post %q: %w", draft.Title, err)
	}

	s.logger.Info("post saved", "file", path)
	return path, nil
}

// RemovePost deletes a saved post; a missing file is not an error.
func (s *FileStore) RemovePost(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove post: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".post-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
