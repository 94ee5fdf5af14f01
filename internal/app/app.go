package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"AutoBlog/internal/config"
	"AutoBlog/internal/dedup"
	"AutoBlog/internal/domain"
	"AutoBlog/internal/infrastructure/collector"
	"AutoBlog/internal/infrastructure/events"
	"AutoBlog/internal/infrastructure/fetch"
	"AutoBlog/internal/infrastructure/llm"
	"AutoBlog/internal/infrastructure/research"
	"AutoBlog/internal/infrastructure/scheduler"
	"AutoBlog/internal/infrastructure/storage"
	"AutoBlog/internal/infrastructure/telegram"
	"AutoBlog/internal/infrastructure/vcs"
	"AutoBlog/internal/logging"
	"AutoBlog/internal/ports"
	"AutoBlog/internal/prompt"
	"AutoBlog/internal/publish"
	"AutoBlog/internal/retry"
	"AutoBlog/internal/scanner"
	"AutoBlog/internal/seo"
	"AutoBlog/internal/topics"
	"AutoBlog/internal/tracer"
	"AutoBlog/internal/usecase"
	"AutoBlog/internal/validator"
)

// ErrHistoryDisabled is returned by History when no database is configured.
var ErrHistoryDisabled = errors.New("run history requires database.dsn")

// Options selects what New wires.
type Options struct {
	// DryRun skips opening the git repository; nothing is written.
	DryRun bool
	// Offline skips the optional sinks (database, NATS, telemetry). Used by
	// read-only commands.
	Offline bool
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	dedup    *dedup.Deduplicator
	topics   *topics.Loader
	history  ports.RunRepository
	closers  []func(context.Context) error
}

// New builds the application. Only a missing git repository is fatal; the
// optional sinks are skipped with a warning when they cannot be reached.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger.With("component", "app")}

	httpClient := fetch.New(baseLogger)
	registry := scanner.NewRegistry(
		collector.NewArxivScanner(httpClient),
		collector.NewRSSScanner(httpClient, baseLogger),
		collector.NewFallbackScanner(),
	)
	ideas := collector.NewStrategySource(registry, cfg.Sources, baseLogger)

	store := storage.NewFileStore(postsDir(cfg), cfg.Site.Location(), baseLogger)
	a.dedup = dedup.New(store, dedup.Options{
		SimilarityThreshold: cfg.Dedup.SimilarityThreshold,
		KeywordThreshold:    cfg.Dedup.KeywordThreshold,
	}, baseLogger.With("component", "dedup"))
	a.topics = topics.NewLoader(cfg.Site.TopicsFile, baseLogger)

	researcher := research.NewResearcher(
		research.NewWikipediaClient(cfg.Research.WikipediaURL, httpClient),
		research.NewNewsClient(cfg.Research.NewsAPIURL, cfg.Research.NewsAPIKey),
		cfg.Research.CacheTTL,
		baseLogger,
	)

	generator := llm.NewChatGPTClient(cfg.LLM, baseLogger)
	prompts := prompt.NewLibrary(cfg.Site.PromptsDir, baseLogger)
	generation := retry.Default().WithLogger(baseLogger.With("component", "retry"))
	builder := seo.NewBuilder(generator, prompts, generation, seo.Options{
		Author:   cfg.Site.Author,
		Location: cfg.Site.Location(),
	}, baseLogger.With("component", "seo"))

	deps := usecase.PipelineDeps{
		Ideas:           ideas,
		Topics:          a.topics,
		Dedup:           a.dedup,
		Researcher:      researcher,
		Generator:       generator,
		Prompts:         prompts,
		Validator:       validator.NewContentValidator(validator.DefaultMinLength),
		Builder:         builder,
		Policy:          generation,
		DynamicCategory: cfg.Site.DynamicCategory,
		DefaultTarget:   cfg.Site.PostsPerRun,
		Logger:          baseLogger,
	}

	if !opts.DryRun {
		repo, err := vcs.Open(vcs.Options{
			Path:        cfg.Git.RepoPath,
			Remote:      cfg.Git.Remote,
			AuthorName:  cfg.Git.AuthorName,
			AuthorEmail: cfg.Git.AuthorEmail,
			Username:    cfg.Git.Username,
			Token:       cfg.Git.Token,
		}, baseLogger)
		if err != nil {
			return nil, fmt.Errorf("open site repository: %w", err)
		}
		deps.Publisher = publish.NewCoordinator(store, repo, retry.Git(), publish.Options{
			CommitTemplate: cfg.Git.CommitTemplate,
			Push:           cfg.Git.PushEnabled(),
		}, baseLogger)
	}

	if !opts.Offline {
		a.wireSinks(ctx, &deps, baseLogger)
	} else if cfg.Database.DSN != "" {
		a.wireHistory(ctx, &deps)
	}

	a.pipeline = usecase.NewPipeline(deps)
	return a, nil
}

func (a *Application) wireSinks(ctx context.Context, deps *usecase.PipelineDeps, logger *slog.Logger) {
	a.closers = append(a.closers, tracer.InitTracer(ctx, a.cfg.Telemetry, a.logger))

	if a.cfg.Database.DSN != "" {
		a.wireHistory(ctx, deps)
	}

	tg := telegram.NewNotifier(a.cfg.Notifications.Telegram.BotToken, a.cfg.Notifications.Telegram.ChatID, logger)
	if tg.Enabled() {
		deps.Notifier = tg
	}

	if a.cfg.Events.NatsURL != "" {
		pub, err := events.NewPublisher(a.cfg.Events.NatsURL, a.cfg.Events.Subject, logger)
		if err != nil {
			a.logger.Warn("post events disabled", "error", err)
		} else {
			deps.Events = pub
			a.closers = append(a.closers, func(context.Context) error {
				pub.Close()
				return nil
			})
		}
	}
}

func (a *Application) wireHistory(ctx context.Context, deps *usecase.PipelineDeps) {
	db, err := storage.OpenPostgres(ctx, a.cfg.Database.DSN)
	if err != nil {
		a.logger.Warn("run history disabled", "error", err)
		return
	}
	repo := storage.NewPostgresRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		a.logger.Warn("run history disabled", "error", err)
		_ = db.Close()
		return
	}
	a.history = repo
	deps.History = repo
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })
}

// postsDir resolves a relative posts directory against the site repository.
func postsDir(cfg config.Config) string {
	dir := cfg.Site.PostsDir
	if cfg.Git.RepoPath == "" || filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(cfg.Git.RepoPath, dir)
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context, req usecase.RunRequest) (domain.RunResult, error) {
	return a.pipeline.Run(ctx, req)
}

// Schedule runs req on the configured interval until ctx is cancelled.
func (a *Application) Schedule(ctx context.Context, req usecase.RunRequest) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.logger)
	sched := usecase.NewScheduler(driver, a.pipeline, req, a.logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	return sched.Stop(stopCtx)
}

// CheckTitle reports whether title would be rejected as a duplicate.
func (a *Application) CheckTitle(ctx context.Context, title string) (dedup.Match, bool) {
	return a.dedup.FindDuplicate(ctx, title)
}

// Stats summarises the published corpus and the curated topics file. A
// missing topics file yields empty topic stats.
func (a *Application) Stats(ctx context.Context) (dedup.Stats, topics.Stats, error) {
	corpus, err := a.dedup.Stats(ctx)
	if err != nil {
		return dedup.Stats{}, topics.Stats{}, fmt.Errorf("corpus stats: %w", err)
	}
	list, err := a.topics.Load()
	if err != nil {
		a.logger.Warn("topics unavailable", "error", err)
	}
	return corpus, topics.ComputeStats(list), nil
}

// History returns the most recent recorded runs.
func (a *Application) History(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if a.history == nil {
		return nil, ErrHistoryDisabled
	}
	return a.history.RecentRuns(ctx, limit)
}

// Close releases sinks in reverse order of creation.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
