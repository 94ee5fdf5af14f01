package seo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/ports"
	"AutoBlog/internal/retry"
)

type stubGenerator struct {
	response string
	err      error
	calls    int
	opts     ports.GenerateOptions
}

func (s *stubGenerator) Generate(_ context.Context, _, _ string, opts ...ports.GenerateOption) (string, error) {
	s.calls++
	s.opts = ports.ApplyGenerateOptions(ports.GenerateOptions{}, opts...)
	return s.response, s.err
}

func noWait(context.Context, time.Duration) error { return nil }

func TestSlug(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"Hello, World!", "hello-world"},
		{"  Go   1.25 -- What's New?  ", "go-125-whats-new"},
		{"snake_case title", "snake-case-title"},
		{"!!!", "blog-post"},
		{"", "blog-post"},
		{"Café Crème", "cafe-creme"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slug(tc.in), tc.in)
	}

	long := Slug("The Ultimate Comprehensive Guide to Building Scalable Distributed Systems")
	assert.LessOrEqual(t, len(long), maxSlugLength)
	assert.False(t, strings.HasSuffix(long, "-"))
	assert.Equal(t, "the-ultimate-comprehensive-guide-to-building", long)

	korean := Slug("재택근무 팁")
	assert.NotEqual(t, "blog-post", korean)
	assert.NotContains(t, korean, " ")
}

func TestHeadings(t *testing.T) {
	t.Parallel()

	content := "# Main *Title*\n\nintro\n\n## Step `one`\n\ntext\n\n### Deep dive\n\nnot a heading #tag\n"
	want := []string{"Main Title", "Step one", "Deep dive"}
	if diff := cmp.Diff(want, Headings(content)); diff != "" {
		t.Fatalf("Headings mismatch (-want +got):\n%s", diff)
	}
}

func TestKeywords(t *testing.T) {
	t.Parallel()

	content := "# 재택근무 생산성 높이는 방법\n\n## Remote Collaboration Tools for Teams\n\n## 시간관리 팁\n"
	got := Keywords(content, []string{"remote work", "재택근무"})
	want := []string{"remote work", "재택근무", "생산성", "remote", "collaboration", "시간관리"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Keywords mismatch (-want +got):\n%s", diff)
	}

	many := make([]string, 12)
	for i := range many {
		many[i] = strings.Repeat("k", i+2)
	}
	assert.Len(t, Keywords("", many), maxKeywords)
}

func TestCategorize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "productivity", Categorize("2024년 최고의 생산성 앱 10선", nil))
	assert.Equal(t, "technology", Categorize("Intro to Machine Learning", []string{"software"}))
	assert.Equal(t, "finance", Categorize("주식 투자 입문", []string{"재테크"}))
	assert.Equal(t, DefaultCategory, Categorize("Email etiquette", nil), "ai must not match inside words")
	assert.Equal(t, DefaultCategory, Categorize("", nil))
}

func TestParseMetaDescription(t *testing.T) {
	t.Parallel()

	response := "## Meta Description\n\"Learn how to set up a productive home office in minutes.\"\n\n## Keywords\nhome, office"
	assert.Equal(t, "Learn how to set up a productive home office in minutes.", parseMetaDescription(response))

	noSection := "Sure!\nThis description line is long enough to be picked up as a fallback sentence."
	assert.Equal(t, "This description line is long enough to be picked up as a fallback sentence.", parseMetaDescription(noSection))

	assert.Empty(t, parseMetaDescription("# only\nshort"))
}

func TestMetaDescriptionUsesGenerator(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: "## Meta Description\n" + strings.Repeat("word ", 50)}
	b := NewBuilder(gen, nil, retry.Default().WithSleeper(noWait), Options{}, nil)

	desc := b.MetaDescription(context.Background(), "Title", "content", nil)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, metaMaxTokens, gen.opts.MaxTokens)
	assert.Equal(t, metaTemperature, gen.opts.Temperature)
	assert.LessOrEqual(t, len([]rune(desc)), maxDescriptionLength)
	assert.True(t, strings.HasSuffix(desc, "..."))
}

func TestMetaDescriptionFallsBack(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{err: retry.NewError(retry.KindAuth, errors.New("bad key"))}
	b := NewBuilder(gen, nil, retry.Default().WithSleeper(noWait), Options{}, nil)

	desc := b.MetaDescription(context.Background(), "Remote Work", "content", []string{"remote", "work", "tips", "extra"})
	assert.Equal(t, 1, gen.calls)
	assert.Contains(t, desc, "Remote Work")
	assert.Contains(t, desc, "remote, work, tips")
	assert.NotContains(t, desc, "extra")
}

func TestBuildPost(t *testing.T) {
	t.Parallel()

	seoul := time.FixedZone("KST", 9*60*60)
	b := NewBuilder(nil, nil, nil, Options{Location: seoul}, nil)
	b.now = func() time.Time { return time.Date(2025, 3, 1, 1, 2, 3, 0, time.UTC) }

	content := "# Remote Work Guide\n\n## Remote Setup\n\nbody\n\n## Daily Routine\n\nbody"
	draft, err := b.BuildPost(context.Background(), domain.Topic{
		Title:    "Remote Work Guide",
		PostType: domain.PostGuide,
		Keywords: []string{"remote"},
	}, content)
	require.NoError(t, err)

	assert.Equal(t, "remote-work-guide", draft.Slug)
	assert.Equal(t, DefaultCategory, draft.Category)
	assert.True(t, strings.HasPrefix(draft.Body, "---\n"))
	assert.True(t, strings.HasSuffix(draft.Body, "---\n\n"+content))

	end := strings.Index(draft.Body[4:], "\n---\n")
	require.Positive(t, end)

	var fm frontMatter
	require.NoError(t, yaml.Unmarshal([]byte(draft.Body[4:4+end]), &fm))
	assert.Equal(t, "post", fm.Layout)
	assert.Equal(t, "2025-03-01 10:02:03 +0900", fm.Date)
	assert.Equal(t, []string{"general"}, fm.Categories)
	assert.Equal(t, "AutoBot", fm.Author)
	assert.Equal(t, []string{"remote", "work", "setup", "daily", "routine"}, fm.Tags)
	assert.Equal(t, fm.Excerpt, fm.SEO.Description)
	assert.Equal(t, "Remote Work Guide", fm.SEO.Title)
}

func TestBuildPostKeepsCuratedCategory(t *testing.T) {
	t.Parallel()

	b := NewBuilder(nil, nil, nil, Options{}, nil)
	draft, err := b.BuildPost(context.Background(), domain.Topic{Title: "Stock Picking", Category: "finance"}, "# x")
	require.NoError(t, err)
	assert.Equal(t, "finance", draft.Category)

	_, err = b.BuildPost(context.Background(), domain.Topic{Title: "  "}, "# x")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "가나다...", truncate("가나다라마바사", 6))
}
