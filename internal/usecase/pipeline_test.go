package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AutoBlog/internal/dedup"
	"AutoBlog/internal/domain"
	"AutoBlog/internal/ports"
	"AutoBlog/internal/retry"
	"AutoBlog/internal/validator"
)

const goodContent = `# A Title

Intro paragraph that is long enough to look like a post.

## First section

Body.

## Second section

More body.`

type fakeIdeas struct {
	batches [][]string
	err     error
	calls   int
}

func (f *fakeIdeas) Collect(context.Context) ([]domain.Idea, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[min(f.calls, len(f.batches))-1]
	ideas := make([]domain.Idea, 0, len(batch))
	for _, title := range batch {
		ideas = append(ideas, domain.Idea{Title: title, Source: "test"})
	}
	return ideas, nil
}

type fakeTopics struct{ topics []domain.Topic }

func (f fakeTopics) Load() ([]domain.Topic, error) {
	return append([]domain.Topic(nil), f.topics...), nil
}

type fakeDedup struct{ dups map[string]bool }

func (f fakeDedup) CheckDuplicates(_ context.Context, title string) bool { return f.dups[title] }

func (f fakeDedup) MatchesAny(title string, titles []string) bool {
	for _, t := range titles {
		if strings.EqualFold(t, title) {
			return true
		}
	}
	return false
}

type emptyCorpus struct{}

func (emptyCorpus) LoadPosts(context.Context) ([]domain.PublishedPost, error) { return nil, nil }

func (emptyCorpus) SavePost(context.Context, domain.Draft) (string, error) { return "", nil }

func (emptyCorpus) RemovePost(context.Context, string) error { return nil }

type fakeResearcher struct {
	empty map[string]bool
	calls int
}

func (f *fakeResearcher) Research(_ context.Context, topic string) (domain.ResearchBundle, error) {
	f.calls++
	if f.empty[topic] {
		return domain.ResearchBundle{Topic: topic}, nil
	}
	return domain.ResearchBundle{Topic: topic, KeyFacts: []string{topic + " is notable."}}, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	fn      func(call int, topic string) (string, error)
}

func (f *fakeGenerator) Generate(_ context.Context, prompt, topic string, _ ...ports.GenerateOption) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	call := len(f.prompts)
	f.mu.Unlock()
	if f.fn == nil {
		return goodContent, nil
	}
	return f.fn(call, topic)
}

type fakeBuilder struct{}

func (fakeBuilder) BuildPost(_ context.Context, topic domain.Topic, content string) (domain.Draft, error) {
	return domain.Draft{Title: topic.Title, Category: topic.Category, Slug: strings.ToLower(topic.Title), Body: content}, nil
}

type fakePublisher struct {
	fail      map[string]error
	published []domain.Draft
}

func (f *fakePublisher) Publish(_ context.Context, draft domain.Draft) (domain.PublishReceipt, error) {
	if err := f.fail[draft.Title]; err != nil {
		return domain.PublishReceipt{}, err
	}
	f.published = append(f.published, draft)
	return domain.PublishReceipt{FilePath: "_posts/" + draft.Slug + ".md", CommitHash: "abc123", Pushed: true}, nil
}

type fakeSinks struct {
	runs    []domain.RunResult
	notes   int
	events  []domain.PostPublishedEvent
	failAll bool
}

func (f *fakeSinks) RecordRun(_ context.Context, result domain.RunResult) error {
	f.runs = append(f.runs, result)
	if f.failAll {
		return errors.New("db down")
	}
	return nil
}

func (f *fakeSinks) RecentRuns(context.Context, int) ([]domain.RunSummary, error) { return nil, nil }

func (f *fakeSinks) NotifyRun(context.Context, domain.RunResult) error {
	f.notes++
	if f.failAll {
		return errors.New("telegram down")
	}
	return nil
}

func (f *fakeSinks) PostPublished(_ context.Context, e domain.PostPublishedEvent) error {
	f.events = append(f.events, e)
	if f.failAll {
		return errors.New("nats down")
	}
	return nil
}

func noSleep(context.Context, time.Duration) error { return nil }

type fixture struct {
	ideas     *fakeIdeas
	research  *fakeResearcher
	gen       *fakeGenerator
	publisher *fakePublisher
	sinks     *fakeSinks
	deps      PipelineDeps
}

func newFixture(titles ...string) *fixture {
	f := &fixture{
		ideas:     &fakeIdeas{batches: [][]string{titles}},
		research:  &fakeResearcher{},
		gen:       &fakeGenerator{},
		publisher: &fakePublisher{},
		sinks:     &fakeSinks{},
	}
	f.deps = PipelineDeps{
		Ideas:      f.ideas,
		Dedup:      fakeDedup{},
		Researcher: f.research,
		Generator:  f.gen,
		Validator:  validator.NewContentValidator(validator.DefaultMinLength),
		Builder:    fakeBuilder{},
		Publisher:  f.publisher,
		History:    f.sinks,
		Notifier:   f.sinks,
		Events:     f.sinks,
		Policy:     retry.Default().WithSleeper(noSleep),
		Rand:       rand.New(rand.NewPCG(1, 2)),
	}
	return f
}

func titles(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("Idea %d", i)
	}
	return out
}

func TestRunSkipsOddDuplicatesAndReachesTarget(t *testing.T) {
	t.Parallel()

	f := newFixture(titles(10)...)
	dups := map[string]bool{}
	for i := 1; i < 10; i += 2 {
		dups[fmt.Sprintf("Idea %d", i)] = true
	}
	f.deps.Dedup = fakeDedup{dups: dups}

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeDynamic, Target: 3})
	require.NoError(t, err)

	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, 3, result.TotalCount)
	require.Len(t, result.Posts, 3)
	assert.Equal(t, []string{"Idea 0", "Idea 2", "Idea 4"}, []string{result.Posts[0].Title, result.Posts[1].Title, result.Posts[2].Title})
	assert.Equal(t, []string{"Skipped duplicate: Idea 1", "Skipped duplicate: Idea 3"}, result.Errors)
	assert.Len(t, f.gen.prompts, 3)
	assert.Len(t, f.sinks.events, 3)
	assert.Equal(t, result.RunID, f.sinks.events[0].RunID)
	assert.NotEmpty(t, result.RunID)
}

func TestRunStopsAtAttemptLimit(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.ideas.batches = [][]string{{"A", "B"}, {"C", "D", "E", "F", "G", "H"}}
	f.deps.Dedup = fakeDedup{dups: map[string]bool{"A": true, "B": true, "C": true, "D": true, "E": true, "F": true, "G": true, "H": true}}

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeDynamic, Target: 2})
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalCount)
	assert.Equal(t, 2, f.ideas.calls, "one refill")
	require.NotEmpty(t, result.Errors)
	assert.Len(t, result.Errors, 7)
	assert.Equal(t, "Attempt limit of 6 reached: generated 0 of 2 posts", result.Errors[6])
	assert.Empty(t, f.gen.prompts)
}

func TestRunReportsExhaustedSupplyBelowTarget(t *testing.T) {
	t.Parallel()

	f := newFixture("Only one", "Already there")
	f.deps.Dedup = fakeDedup{dups: map[string]bool{"Already there": true}}

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeDynamic, Target: 3})
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalCount)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 2, f.ideas.calls)
	assert.Contains(t, result.Errors, "Supply exhausted: generated 1 of 3 posts")
}

func TestRunValidationIsAdvisory(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	f := newFixture("Short post")
	f.deps.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	f.gen.fn = func(int, string) (string, error) { return "too short, no heading", nil }

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeDynamic, Target: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)
	require.Len(t, f.publisher.published, 1)
	assert.Equal(t, "too short, no heading", f.publisher.published[0].Body)
	assert.Contains(t, logs.String(), "content failed validation, publishing anyway")
	assert.Contains(t, logs.String(), "level=WARN")
}

func TestDryRunRejectsRepeatsWithinRun(t *testing.T) {
	t.Parallel()

	f := newFixture("AI agents reshape cloud software", "AI Agents Reshape Cloud Software!", "Quantum sensors in farming")
	f.deps.Dedup = dedup.New(emptyCorpus{}, dedup.Options{}, nil)

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeDynamic, Target: 2, DryRun: true})
	require.NoError(t, err)

	require.Len(t, result.Posts, 2)
	assert.Equal(t, "AI agents reshape cloud software", result.Posts[0].Title)
	assert.Equal(t, "Quantum sensors in farming", result.Posts[1].Title)
	assert.Equal(t, []string{"Skipped duplicate: AI Agents Reshape Cloud Software!"}, result.Errors)
	assert.Len(t, f.gen.prompts, 2)
}

func TestRunAuthFailureAbortsBatch(t *testing.T) {
	t.Parallel()

	f := newFixture(titles(3)...)
	f.gen.fn = func(int, string) (string, error) {
		return "", retry.NewError(retry.KindAuth, errors.New("401 invalid api key"))
	}

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeDynamic, Target: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAborted)
	assert.True(t, retry.IsAuth(err))

	assert.Len(t, f.gen.prompts, 1, "no retries and no further ideas")
	assert.Equal(t, 0, result.TotalCount)
	require.Len(t, result.Errors, 2)
	assert.True(t, strings.HasPrefix(result.Errors[0], "Failed to generate 'Idea 0' after 1 attempts"))
	assert.True(t, strings.HasPrefix(result.Errors[1], "Pipeline failed: pipeline aborted"))
	assert.Len(t, f.sinks.runs, 1, "history still recorded")
}

func TestRunRetriesTransientGeneration(t *testing.T) {
	t.Parallel()

	f := newFixture("Flaky")
	f.gen.fn = func(call int, _ string) (string, error) {
		if call < 3 {
			return "", retry.NewError(retry.KindTransient, errors.New("502"))
		}
		return goodContent, nil
	}

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeDynamic, Target: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Len(t, f.gen.prompts, 3)
}

func TestRunGenerationFailureContinues(t *testing.T) {
	t.Parallel()

	f := newFixture("Broken", "Works")
	f.gen.fn = func(_ int, topic string) (string, error) {
		if topic == "Broken" {
			return "", retry.NewError(retry.KindUnknown, errors.New("empty completion"))
		}
		return goodContent, nil
	}

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeDynamic, Target: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCount, "failed generations are not counted")
	assert.Equal(t, "Works", result.Posts[0].Title)
	assert.Contains(t, result.Errors[0], "Failed to generate 'Broken' after 3 attempts")
}

func TestRunSkipsInsufficientResearch(t *testing.T) {
	t.Parallel()

	f := newFixture("Obscure", "Known")
	f.research.empty = map[string]bool{"Obscure": true}

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeDynamic, Target: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Skipped (insufficient research): Obscure"}, result.Errors)
	assert.Equal(t, "Known", result.Posts[0].Title)
	require.Len(t, f.gen.prompts, 1)
	assert.Contains(t, f.gen.prompts[0], "Known is notable.")
}

func TestRunPublishFailureIsRecorded(t *testing.T) {
	t.Parallel()

	f := newFixture("Idea 0", "Idea 1", "Idea 2")
	f.publisher.fail = map[string]error{"Idea 0": errors.New("commit rejected")}

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeDynamic, Target: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 1, result.SuccessCount)
	assert.False(t, result.Posts[0].Success)
	assert.Equal(t, "Failed to publish 'Idea 0': commit rejected", result.Posts[0].Error)
	assert.Equal(t, []string{"Failed to publish 'Idea 0': commit rejected"}, result.Errors)
	assert.InDelta(t, 50.0, result.SuccessRate(), 0.001)
}

func TestRunDryRunSkipsWriteSide(t *testing.T) {
	t.Parallel()

	f := newFixture("Dry idea")

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeDynamic, Target: 1, DryRun: true})
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	require.Len(t, result.Posts, 1)
	assert.Equal(t, domain.DryRunFile, result.Posts[0].FilePath)
	assert.Equal(t, domain.DryRunCommit, result.Posts[0].CommitHash)
	assert.Empty(t, f.publisher.published)
	assert.Empty(t, f.sinks.events)
	assert.Len(t, f.sinks.runs, 1)
	assert.Equal(t, 1, f.sinks.notes)
}

func TestRunCollectFailureIsFatal(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.ideas.err = errors.New("all idea sources failed")

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeDynamic})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect ideas")
	assert.Len(t, result.Errors, 1)

	f = newFixture()
	_, err = NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeDynamic})
	assert.ErrorIs(t, err, ErrNoIdeas)
}

func TestRunSinkFailuresDoNotChangeResult(t *testing.T) {
	t.Parallel()

	f := newFixture("Idea 0")
	f.sinks.failAll = true

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeDynamic, Target: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Empty(t, result.Errors)
	assert.Len(t, f.sinks.events, 1)
}

func curated(n int) []domain.Topic {
	out := make([]domain.Topic, n)
	for i := range out {
		out[i] = domain.Topic{Title: fmt.Sprintf("Topic %d", i), PostType: domain.PostGuide, Category: "productivity", WordCount: 600}
	}
	return out
}

func TestRunOnceAndSeedModes(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.deps.Topics = fakeTopics{topics: curated(12)}

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeOnce})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 0, f.research.calls, "curated topics are not researched")
	assert.Contains(t, f.gen.prompts[0], "600")

	result, err = NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeSeed})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.SuccessCount, 5)
	assert.LessOrEqual(t, result.SuccessCount, 10)

	f.deps.Topics = fakeTopics{topics: curated(3)}
	result, err = NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeSeed})
	require.NoError(t, err)
	assert.Equal(t, 3, result.SuccessCount, "capped by available topics")
}

func TestRunCuratedDuplicatesAreReplaced(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.deps.Topics = fakeTopics{topics: curated(4)}
	f.deps.Dedup = fakeDedup{dups: map[string]bool{"Topic 0": true, "Topic 1": true, "Topic 2": true}}

	result, err := NewPipeline(f.deps).Run(context.Background(), RunRequest{Mode: domain.ModeOnce})
	require.NoError(t, err)
	require.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, "Topic 3", result.Posts[0].Title)
}

func TestRunRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	_, err := NewPipeline(newFixture().deps).Run(context.Background(), RunRequest{Mode: "weekly"})
	assert.ErrorContains(t, err, `unknown mode "weekly"`)
}
