// Package vcs commits and pushes published posts with go-git.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"AutoBlog/internal/ports"
	"AutoBlog/internal/retry"
)

// Options configures the repository wrapper.
type Options struct {
	Path        string
	Remote      string
	AuthorName  string
	AuthorEmail string
	// Username and Token enable HTTP basic auth for push.
	Username string
	Token    string
}

// Repository wraps a local clone of the blog.
type Repository struct {
	repo   *git.Repository
	root   string
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.VersionControl = (*Repository)(nil)

// Open opens an existing clone at opts.Path.
func Open(opts Options, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Remote == "" {
		opts.Remote = git.DefaultRemoteName
	}
	if opts.AuthorName == "" {
		opts.AuthorName = "AutoBot"
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = "autobot@users.noreply.github.com"
	}

	repo, err := git.PlainOpen(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open git repository %s: %w", opts.Path, err)
	}
	root, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve repository path: %w", err)
	}

	return &Repository{repo: repo, root: root, opts: opts, logger: logger, now: time.Now}, nil
}

// Commit stages path and records a commit. It returns the commit hash.
func (r *Repository) Commit(ctx context.Context, path, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}

	rel, err := r.relative(path)
	if err != nil {
		return "", err
	}
	if _, err := wt.Add(rel); err != nil {
		return "", classify(fmt.Errorf("git add %s: %w", rel, err))
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  r.opts.AuthorName,
			Email: r.opts.AuthorEmail,
			When:  r.now(),
		},
	})
	if err != nil {
		return "", classify(fmt.Errorf("git commit: %w", err))
	}

	r.logger.Info("commit created", "hash", hash.String()[:7], "file", rel)
	return hash.String(), nil
}

// Discard resets the index entry for path to HEAD, or drops it when HEAD does
// not track the path. A path that was never staged is a no-op.
func (r *Repository) Discard(_ context.Context, path string) error {
	rel, err := r.relative(path)
	if err != nil {
		return err
	}

	idx, err := r.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}

	tracked, err := r.headEntry(rel)
	if err != nil {
		return err
	}
	if tracked != nil {
		entry, err := idx.Entry(rel)
		if err != nil {
			if errors.Is(err, index.ErrEntryNotFound) {
				return nil
			}
			return fmt.Errorf("index entry %s: %w", rel, err)
		}
		entry.Hash = tracked.Hash
		entry.Mode = tracked.Mode
	} else if _, err := idx.Remove(rel); err != nil {
		if errors.Is(err, index.ErrEntryNotFound) {
			return nil
		}
		return fmt.Errorf("unstage %s: %w", rel, err)
	}

	if err := r.repo.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	r.logger.Info("staged change discarded", "file", rel)
	return nil
}

// headEntry returns the HEAD tree entry for rel, or nil when HEAD is unborn or
// does not contain it.
func (r *Repository) headEntry(rel string) (*object.TreeEntry, error) {
	head, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("read HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read HEAD tree: %w", err)
	}
	entry, err := tree.FindEntry(rel)
	if errors.Is(err, object.ErrEntryNotFound) || errors.Is(err, object.ErrDirectoryNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s in HEAD: %w", rel, err)
	}
	return entry, nil
}

// Push sends local commits to the configured remote. An up-to-date remote is
// not an error.
func (r *Repository) Push(ctx context.Context) error {
	opts := &git.PushOptions{RemoteName: r.opts.Remote}
	if r.opts.Token != "" {
		user := r.opts.Username
		if user == "" {
			user = "x-access-token"
		}
		opts.Auth = &githttp.BasicAuth{Username: user, Password: r.opts.Token}
	}

	err := r.repo.PushContext(ctx, opts)
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		r.logger.Debug("remote already up to date", "remote", r.opts.Remote)
		return nil
	}
	if err != nil {
		return classify(fmt.Errorf("git push %s: %w", r.opts.Remote, err))
	}

	r.logger.Info("pushed to remote", "remote", r.opts.Remote)
	return nil
}

func (r *Repository) relative(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside repository %s", path, r.root)
	}
	return filepath.ToSlash(rel), nil
}

var networkHints = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"timed out",
	"no such host",
	"could not resolve",
	"network is unreachable",
	"unexpected eof",
}

func classify(err error) error {
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed),
		errors.Is(err, transport.ErrInvalidAuthMethod):
		return retry.NewError(retry.KindAuth, err)
	case errors.Is(err, context.DeadlineExceeded):
		return retry.NewError(retry.KindTransient, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return retry.NewError(retry.KindTransient, err)
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range networkHints {
		if strings.Contains(msg, hint) {
			return retry.NewError(retry.KindTransient, err)
		}
	}
	return err
}
