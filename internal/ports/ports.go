package ports

import (
	"context"
	"time"

	"AutoBlog/internal/domain"
)

// IdeaSource pulls candidate topics from upstream providers.
type IdeaSource interface {
	Collect(ctx context.Context) ([]domain.Idea, error)
}

// TopicSource lists curated topics for the once and seed modes.
type TopicSource interface {
	Load() ([]domain.Topic, error)
}

// Researcher gathers facts and recent news for a topic. An empty bundle is not
// an error.
type Researcher interface {
	Research(ctx context.Context, topic string) (domain.ResearchBundle, error)
}

// Generator turns a formatted prompt into Markdown. Failures are classified
// with retry.Error so the pipeline can decide whether to retry.
type Generator interface {
	Generate(ctx context.Context, prompt, topic string, opts ...GenerateOption) (string, error)
}

// GenerateOptions overrides the backend defaults for one call.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// GenerateOption mutates GenerateOptions.
type GenerateOption func(*GenerateOptions)

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) { o.MaxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) { o.Temperature = t }
}

// ApplyGenerateOptions folds opts over base.
func ApplyGenerateOptions(base GenerateOptions, opts ...GenerateOption) GenerateOptions {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

// DuplicateChecker decides whether a title is already covered by the corpus.
type DuplicateChecker interface {
	CheckDuplicates(ctx context.Context, title string) bool
	MatchesAny(title string, titles []string) bool
}

// ContentValidator runs the advisory structural checks on generated content.
type ContentValidator interface {
	Validate(content string) domain.ValidationResult
}

// PostBuilder attaches front matter and SEO metadata to generated content.
type PostBuilder interface {
	BuildPost(ctx context.Context, topic domain.Topic, content string) (domain.Draft, error)
}

// CorpusStore reads and writes published posts.
type CorpusStore interface {
	LoadPosts(ctx context.Context) ([]domain.PublishedPost, error)
	SavePost(ctx context.Context, draft domain.Draft) (string, error)
	RemovePost(ctx context.Context, path string) error
}

// VersionControl records saved posts in the site repository.
type VersionControl interface {
	Commit(ctx context.Context, path, message string) (string, error)
	// Discard drops any staged change for path so a later commit cannot
	// pick it up.
	Discard(ctx context.Context, path string) error
	Push(ctx context.Context) error
}

// Publisher persists and commits a draft as one step.
type Publisher interface {
	Publish(ctx context.Context, draft domain.Draft) (domain.PublishReceipt, error)
}

// RunRepository keeps the history of pipeline runs.
type RunRepository interface {
	RecordRun(ctx context.Context, result domain.RunResult) error
	RecentRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

// Notifier sends run summaries to Telegram or other channels.
type Notifier interface {
	NotifyRun(ctx context.Context, result domain.RunResult) error
}

// EventPublisher announces published posts to other services.
type EventPublisher interface {
	PostPublished(ctx context.Context, event domain.PostPublishedEvent) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
