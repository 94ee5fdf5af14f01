// Package publish saves, commits and pushes finished drafts.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"AutoBlog/internal/domain"
	"AutoBlog/internal/ports"
	"AutoBlog/internal/retry"
)

// DefaultCommitTemplate is used when no template is configured.
const DefaultCommitTemplate = "feat: publish new blog post - {title}"

// Options tunes the coordinator.
type Options struct {
	// CommitTemplate may contain {title}; without it the default is used.
	CommitTemplate string
	Push           bool
}

// Coordinator turns a draft into a committed post.
type Coordinator struct {
	store  ports.CorpusStore
	vcs    ports.VersionControl
	policy *retry.Policy
	opts   Options
	logger *slog.Logger
}

var _ ports.Publisher = (*Coordinator)(nil)

// NewCoordinator wires the corpus store and version control. A nil policy
// falls back to retry.Git.
func NewCoordinator(store ports.CorpusStore, vcs ports.VersionControl, policy *retry.Policy, opts Options, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "publisher")
	if policy == nil {
		policy = retry.Git()
	}
	policy = policy.WithLogger(logger)
	if !strings.Contains(opts.CommitTemplate, "{title}") {
		opts.CommitTemplate = DefaultCommitTemplate
	}
	return &Coordinator{store: store, vcs: vcs, policy: policy, opts: opts, logger: logger}
}

// Publish writes the draft, commits it and optionally pushes. When the commit
// fails the written file is removed again and unstaged. A failed push is reported on the
// receipt only; the commit exists locally and the post counts as published.
func (c *Coordinator) Publish(ctx context.Context, draft domain.Draft) (domain.PublishReceipt, error) {
	path, err := c.store.SavePost(ctx, draft)
	if err != nil {
		return domain.PublishReceipt{}, fmt.Errorf("save post: %w", err)
	}
	receipt := domain.PublishReceipt{FilePath: path}

	message := c.CommitMessage(draft)
	hash, attempts, err := retry.Execute(ctx, c.policy, func(ctx context.Context) (string, error) {
		return c.vcs.Commit(ctx, path, message)
	})
	if err != nil {
		c.rollback(context.WithoutCancel(ctx), path)
		return domain.PublishReceipt{}, fmt.Errorf("commit post after %d attempt(s): %w", attempts, err)
	}
	receipt.CommitHash = hash

	if !c.opts.Push {
		c.logger.Info("post committed", "title", draft.Title, "file", path, "commit", shortHash(hash))
		return receipt, nil
	}

	if _, err := retry.Do(ctx, c.policy, c.vcs.Push); err != nil {
		c.logger.Warn("push failed, commit kept locally", "title", draft.Title, "error", err)
		receipt.PushError = err.Error()
		return receipt, nil
	}

	receipt.Pushed = true
	c.logger.Info("post published", "title", draft.Title, "file", path, "commit", shortHash(hash))
	return receipt, nil
}

// rollback removes an uncommitted post from disk and from the index.
func (c *Coordinator) rollback(ctx context.Context, path string) {
	if err := c.store.RemovePost(ctx, path); err != nil {
		c.logger.Error("failed to remove uncommitted post", "file", path, "error", err)
	}
	if err := c.vcs.Discard(ctx, path); err != nil {
		c.logger.Error("failed to unstage uncommitted post", "file", path, "error", err)
	}
}

// CommitMessage renders the template plus type and category detail lines.
func (c *Coordinator) CommitMessage(draft domain.Draft) string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(c.opts.CommitTemplate, "{title}", draft.Title))

	var details []string
	if draft.PostType != "" {
		details = append(details, "type: "+string(draft.PostType))
	}
	if draft.Category != "" {
		details = append(details, "category: "+draft.Category)
	}
	if len(details) > 0 {
		b.WriteString("\n")
		for _, d := range details {
			b.WriteString("\n- ")
			b.WriteString(d)
		}
	}
	return b.String()
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
