package topics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AutoBlog/internal/domain"
)

const sampleTopics = `topics:
  - title: "  Best Productivity Apps  "
    post_type: Listicle
    category: productivity
    keywords: [apps, productivity]
    word_count: 1200
  - title: Home Office Setup
    post_type: tutorial
    keywords: "desk, chair , lighting"
    word_count: 100
  - title: Reading Summary
    post_type: summary
    word_count: 5000
  - title: Bad Count
    post_type: guide
    word_count: "lots"
  - post_type: guide
  - title: No Type
`

func writeTopics(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topics.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	topics, err := NewLoader(writeTopics(t, sampleTopics), nil).Load()
	require.NoError(t, err)
	require.Len(t, topics, 4)

	assert.Equal(t, domain.Topic{
		Title:     "Best Productivity Apps",
		PostType:  domain.PostListicle,
		Category:  "productivity",
		Keywords:  []string{"apps", "productivity"},
		WordCount: 1200,
	}, topics[0])

	assert.Equal(t, domain.PostGuide, topics[1].PostType)
	assert.Equal(t, "general", topics[1].Category)
	assert.Equal(t, []string{"desk", "chair", "lighting"}, topics[1].Keywords)
	assert.Equal(t, 300, topics[1].WordCount)

	assert.Equal(t, 2000, topics[2].WordCount)
	assert.Nil(t, topics[2].Keywords)
	assert.Equal(t, 800, topics[3].WordCount)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.yml"), nil).Load()
	assert.Error(t, err)

	_, err = NewLoader(writeTopics(t, "topics: [unclosed"), nil).Load()
	assert.Error(t, err)

	topics, err := NewLoader(writeTopics(t, "other: 1\n"), nil).Load()
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestFiltersAndStats(t *testing.T) {
	t.Parallel()

	topics, err := NewLoader(writeTopics(t, sampleTopics), nil).Load()
	require.NoError(t, err)

	assert.Len(t, ByCategory(topics, "general"), 3)
	assert.Len(t, ByType(topics, domain.PostGuide), 2)

	stats := ComputeStats(topics)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, map[string]int{"productivity": 1, "general": 3}, stats.Categories)
	assert.Equal(t, 1, stats.Types[domain.PostSummary])
}
