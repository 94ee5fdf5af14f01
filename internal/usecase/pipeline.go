package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/ports"
	"AutoBlog/internal/prompt"
	"AutoBlog/internal/retry"
)

const tracerName = "AutoBlog/internal/usecase"

// ErrAborted wraps the failure that stopped a batch early.
var ErrAborted = errors.New("pipeline aborted")

// PipelineDeps wires all driven adapters into the generation pipeline. The
// history, notifier and events sinks are optional.
type PipelineDeps struct {
	Ideas      ports.IdeaSource
	Topics     ports.TopicSource
	Dedup      ports.DuplicateChecker
	Researcher ports.Researcher
	Generator  ports.Generator
	Prompts    *prompt.Library
	Validator  ports.ContentValidator
	Builder    ports.PostBuilder
	Publisher  ports.Publisher

	History  ports.RunRepository
	Notifier ports.Notifier
	Events   ports.EventPublisher

	// Policy wraps generation calls; nil means retry.Default.
	Policy          *retry.Policy
	DynamicCategory string
	// DefaultTarget is used by dynamic runs that do not set a target.
	DefaultTarget int
	Rand          *rand.Rand
	Logger        *slog.Logger
}

// RunRequest selects the mode of one run. Target is the number of posts to
// generate; zero picks the mode default.
type RunRequest struct {
	Mode   domain.Mode
	Target int
	DryRun bool
}

// Pipeline implements the idea to published post workflow.
type Pipeline struct {
	deps   PipelineDeps
	policy *retry.Policy
	rng    *rand.Rand
	tracer trace.Tracer
	logger *slog.Logger
	now    func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := deps.Policy
	if policy == nil {
		policy = retry.Default().WithLogger(logger)
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if deps.DynamicCategory == "" {
		deps.DynamicCategory = "AI_Trends"
	}
	if deps.DefaultTarget <= 0 {
		deps.DefaultTarget = 1
	}
	if deps.Prompts == nil {
		deps.Prompts = prompt.NewLibrary("", logger)
	}
	return &Pipeline{
		deps:   deps,
		policy: policy,
		rng:    rng,
		tracer: otel.Tracer(tracerName),
		logger: logger.With("component", "pipeline"),
		now:    time.Now,
	}
}

// itemStatus is the terminal state of one item.
type itemStatus int

const (
	itemSkipped itemStatus = iota
	itemFailed
	itemPublished
	itemAbort
)

// run carries the mutable state of one Run call.
type run struct {
	req    RunRequest
	result domain.RunResult
	// accepted holds dry-run titles, which never reach the corpus.
	accepted []string
}

// Run executes one batch. The returned error is non-nil only when the batch
// could not start or was aborted; per-item failures live in the result.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (domain.RunResult, error) {
	if _, ok := domain.ParseMode(string(req.Mode)); !ok {
		return domain.RunResult{}, fmt.Errorf("unknown mode %q", req.Mode)
	}

	r := &run{req: req}
	r.result = domain.RunResult{
		RunID:     uuid.NewString(),
		Mode:      req.Mode,
		DryRun:    req.DryRun,
		StartedAt: p.now(),
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("autoblog.run_id", r.result.RunID),
		attribute.String("autoblog.mode", string(req.Mode)),
		attribute.Bool("autoblog.dry_run", req.DryRun),
	))
	defer span.End()

	log := p.logger.With("run_id", r.result.RunID, "mode", req.Mode)
	log.Info("pipeline started", "dry_run", req.DryRun)

	err := p.execute(ctx, r, log)
	r.result.FinishedAt = p.now()
	if err != nil {
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("Pipeline failed: %v", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.Int("autoblog.success_count", r.result.SuccessCount),
		attribute.Int("autoblog.total_count", r.result.TotalCount),
	)

	log.Info("pipeline completed",
		"success", r.result.SuccessCount,
		"total", r.result.TotalCount,
		"success_rate", fmt.Sprintf("%.1f%%", r.result.SuccessRate()),
		"errors", len(r.result.Errors))
	for _, e := range r.result.Errors {
		log.Warn("run issue", "detail", e)
	}

	p.finish(ctx, r.result, log)
	return r.result, err
}

func (p *Pipeline) execute(ctx context.Context, r *run, log *slog.Logger) error {
	var (
		cursor   *Cursor
		target   int
		research bool
		err      error
	)
	if p.deps.Generator == nil {
		return fmt.Errorf("generator is not configured")
	}

	switch r.req.Mode {
	case domain.ModeDynamic:
		if p.deps.Ideas == nil {
			return fmt.Errorf("idea source is not configured")
		}
		research = true
		target = r.req.Target
		if target <= 0 {
			target = p.deps.DefaultTarget
		}
		cursor, err = NewCursor(ctx, p.ideaSupply, true)
		if err != nil {
			return fmt.Errorf("collect ideas: %w", err)
		}
	default:
		if p.deps.Topics == nil {
			return fmt.Errorf("topic source is not configured")
		}
		cursor, err = NewCursor(ctx, p.topicSupply, false)
		if err != nil {
			return fmt.Errorf("select topics: %w", err)
		}
		target = p.topicTarget(r.req, len(cursor.items))
	}

	log.Info("processing", "target", target, "supply", len(cursor.items), "attempt_limit", cursor.Limit())

	for r.result.TotalCount < target {
		if err := ctx.Err(); err != nil {
			return err
		}
		topic, ok := cursor.Next(ctx)
		if !ok {
			p.reportStop(r, cursor, target, log)
			break
		}

		log.Info("processing item", "attempt", cursor.Attempts(), "title", topic.Title)
		status, err := p.processItem(ctx, r, topic, research)
		if status == itemAbort {
			return fmt.Errorf("%w: %w", ErrAborted, err)
		}
	}
	return nil
}

func (p *Pipeline) reportStop(r *run, c *Cursor, target int, log *slog.Logger) {
	if c.RefillErr != nil {
		log.Error("idea refill failed", "error", c.RefillErr)
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("Idea refill failed: %v", c.RefillErr))
	}
	var msg string
	switch c.Stopped() {
	case StopAttemptLimit:
		msg = fmt.Sprintf("Attempt limit of %d reached: generated %d of %d posts", c.Limit(), r.result.TotalCount, target)
	default:
		msg = fmt.Sprintf("Supply exhausted: generated %d of %d posts", r.result.TotalCount, target)
	}
	log.Warn("stopping before target", "reason", msg)
	r.result.Errors = append(r.result.Errors, msg)
}

// ideaSupply collects ideas and maps them to research driven topics.
func (p *Pipeline) ideaSupply(ctx context.Context) ([]domain.Topic, error) {
	ideas, err := p.deps.Ideas.Collect(ctx)
	if err != nil {
		return nil, err
	}
	topics := make([]domain.Topic, 0, len(ideas))
	for _, idea := range ideas {
		topics = append(topics, domain.TopicFromIdea(idea, p.deps.DynamicCategory))
	}
	p.logger.Info("ideas collected", "count", len(topics))
	return topics, nil
}

// topicSupply returns the curated topics in random order.
func (p *Pipeline) topicSupply(context.Context) ([]domain.Topic, error) {
	topics, err := p.deps.Topics.Load()
	if err != nil {
		return nil, err
	}
	p.rng.Shuffle(len(topics), func(i, j int) { topics[i], topics[j] = topics[j], topics[i] })
	return topics, nil
}

// topicTarget is one post in once mode and five to ten in seed mode, never
// more than there are topics.
func (p *Pipeline) topicTarget(req RunRequest, available int) int {
	target := req.Target
	if target <= 0 {
		target = 1
		if req.Mode == domain.ModeSeed {
			target = 5 + p.rng.IntN(6)
		}
	}
	return min(target, available)
}

// processItem walks one topic through dedup, research, generation,
// validation and publication.
func (p *Pipeline) processItem(ctx context.Context, r *run, topic domain.Topic, research bool) (itemStatus, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.item", trace.WithAttributes(
		attribute.String("autoblog.title", topic.Title),
		attribute.String("autoblog.post_type", string(topic.PostType)),
	))
	defer span.End()

	log := p.logger.With("run_id", r.result.RunID, "title", topic.Title)

	if p.deps.Dedup != nil && p.deps.Dedup.CheckDuplicates(ctx, topic.Title) {
		log.Info("duplicate title, skipping")
		span.SetAttributes(attribute.String("autoblog.outcome", "duplicate"))
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("Skipped duplicate: %s", topic.Title))
		return itemSkipped, nil
	}
	if p.deps.Dedup != nil && len(r.accepted) > 0 && p.deps.Dedup.MatchesAny(topic.Title, r.accepted) {
		log.Info("repeats a title accepted earlier in this dry run, skipping")
		span.SetAttributes(attribute.String("autoblog.outcome", "duplicate"))
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("Skipped duplicate: %s", topic.Title))
		return itemSkipped, nil
	}

	vars := prompt.VarsForTopic(topic)
	if research {
		bundle, err := p.research(ctx, topic.Title)
		if err != nil {
			span.RecordError(err)
			r.result.Errors = append(r.result.Errors, fmt.Sprintf("Research failed for '%s': %v", topic.Title, err))
			return itemFailed, nil
		}
		if bundle.IsEmpty() {
			log.Info("insufficient research, skipping")
			span.SetAttributes(attribute.String("autoblog.outcome", "insufficient_research"))
			r.result.Errors = append(r.result.Errors, fmt.Sprintf("Skipped (insufficient research): %s", topic.Title))
			return itemSkipped, nil
		}
		vars.ResearchSummary = prompt.Summarize(bundle)
	}

	template, err := p.deps.Prompts.ForTopic(topic)
	if err != nil {
		span.RecordError(err)
		r.result.Errors = append(r.result.Errors, fmt.Sprintf("Failed to load prompt for '%s': %v", topic.Title, err))
		return itemFailed, nil
	}
	formatted := prompt.Format(template, vars)

	content, attempts, err := retry.Execute(ctx, p.policy, func(ctx context.Context) (string, error) {
		return p.deps.Generator.Generate(ctx, formatted, topic.Title)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		msg := fmt.Sprintf("Failed to generate '%s' after %d attempts: %v", topic.Title, attempts, err)
		r.result.Errors = append(r.result.Errors, msg)
		if retry.IsAuth(err) {
			log.Error("generation rejected credentials, aborting batch", "error", err)
			return itemAbort, err
		}
		log.Error("generation failed", "attempts", attempts, "error", err)
		return itemFailed, nil
	}

	r.result.TotalCount++
	log.Info("content generated", "chars", len(content), "attempts", attempts)

	if p.deps.Validator != nil {
		if v := p.deps.Validator.Validate(content); !v.IsValid {
			log.Warn("content failed validation, publishing anyway", "warnings", v.Warnings)
			span.AddEvent("validation_warnings", trace.WithAttributes(attribute.StringSlice("warnings", v.Warnings)))
		}
	}

	outcome := domain.PostOutcome{Title: topic.Title}
	status := p.publish(ctx, r, topic, content, &outcome, log)
	if outcome.Error != "" {
		span.SetStatus(codes.Error, "publish failed")
	}
	r.result.Posts = append(r.result.Posts, outcome)
	return status, nil
}

// research treats an absent researcher as an empty bundle.
func (p *Pipeline) research(ctx context.Context, title string) (domain.ResearchBundle, error) {
	if p.deps.Researcher == nil {
		return domain.ResearchBundle{Topic: title}, nil
	}
	return p.deps.Researcher.Research(ctx, title)
}

func (p *Pipeline) publish(ctx context.Context, r *run, topic domain.Topic, content string, outcome *domain.PostOutcome, log *slog.Logger) itemStatus {
	fail := func(format string, err error) itemStatus {
		outcome.Error = fmt.Sprintf(format, topic.Title, err)
		r.result.Errors = append(r.result.Errors, outcome.Error)
		log.Error("publish failed", "error", err)
		return itemFailed
	}

	if p.deps.Builder == nil {
		return fail("Failed to build '%s': %v", errors.New("post builder is not configured"))
	}
	draft, err := p.deps.Builder.BuildPost(ctx, topic, content)
	if err != nil {
		return fail("Failed to build '%s': %v", err)
	}

	if r.req.DryRun {
		log.Info("dry run, not publishing", "slug", draft.Slug)
		outcome.Success = true
		outcome.FilePath = domain.DryRunFile
		outcome.CommitHash = domain.DryRunCommit
		r.result.SuccessCount++
		r.accepted = append(r.accepted, topic.Title)
		return itemPublished
	}

	if p.deps.Publisher == nil {
		return fail("Failed to publish '%s': %v", errors.New("publisher is not configured"))
	}
	receipt, err := p.deps.Publisher.Publish(ctx, draft)
	if err != nil {
		return fail("Failed to publish '%s': %v", err)
	}

	outcome.Success = true
	outcome.FilePath = receipt.FilePath
	outcome.CommitHash = receipt.CommitHash
	r.result.SuccessCount++
	if receipt.PushError != "" {
		log.Warn("post committed but push failed", "error", receipt.PushError)
	}
	log.Info("post published", "file", receipt.FilePath, "commit", receipt.CommitHash)

	p.emit(ctx, domain.PostPublishedEvent{
		RunID:      r.result.RunID,
		Title:      draft.Title,
		Category:   draft.Category,
		Tags:       draft.Tags,
		FilePath:   receipt.FilePath,
		CommitHash: receipt.CommitHash,
		Pushed:     receipt.Pushed,
		At:         p.now(),
	}, log)
	return itemPublished
}

func (p *Pipeline) emit(ctx context.Context, event domain.PostPublishedEvent, log *slog.Logger) {
	if p.deps.Events == nil {
		return
	}
	if err := p.deps.Events.PostPublished(ctx, event); err != nil {
		log.Warn("failed to publish post event", "error", err)
	}
}

// finish hands the result to the optional sinks. Their failures are logged
// and never change the result.
func (p *Pipeline) finish(ctx context.Context, result domain.RunResult, log *slog.Logger) {
	sinkCtx := context.WithoutCancel(ctx)
	if p.deps.History != nil {
		if err := p.deps.History.RecordRun(sinkCtx, result); err != nil {
			log.Warn("failed to record run history", "error", err)
		}
	}
	if p.deps.Notifier != nil {
		if err := p.deps.Notifier.NotifyRun(sinkCtx, result); err != nil {
			log.Warn("failed to send run notification", "error", err)
		}
	}
}
