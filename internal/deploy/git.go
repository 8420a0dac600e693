package deploy

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// GitOptions configures commits made by the Git deployer.
type GitOptions struct {
	AuthorName  string
	AuthorEmail string
	Message     string
	Now         func() time.Time
}

// Git commits the deploy directory into a repository rooted there, creating
// the repository on first use. Pushing is left to whatever watches it.
type Git struct {
	opts GitOptions
}

func NewGit(opts GitOptions) *Git {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Message == "" {
		opts.Message = "Site build"
	}
	return &Git{opts: opts}
}

func (g *Git) Name() string { return "git" }

func (g *Git) Deploy(ctx context.Context, dir string) error {
	_, err := g.Commit(ctx, dir)
	return err
}

// Commit stages every change in dir, including deletions, and commits it.
// A clean worktree is not an error and returns plumbing.ZeroHash.
func (g *Git) Commit(ctx context.Context, dir string) (plumbing.Hash, error) {
	if err := ctx.Err(); err != nil {
		return plumbing.ZeroHash, err
	}

	repo, err := git.PlainOpen(dir)
	if stderrors.Is(err, git.ErrRepositoryNotExists) {
		slog.Info("Initializing deploy repository", logfields.Path(dir))
		repo, err = git.PlainInit(dir, false)
	}
	if err != nil {
		return plumbing.ZeroHash, gitError("failed to open deploy repository", dir, err)
	}

	w, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, gitError("failed to get worktree", dir, err)
	}
	if err := w.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return plumbing.ZeroHash, gitError("failed to stage deploy directory", dir, err)
	}
	status, err := w.Status()
	if err != nil {
		return plumbing.ZeroHash, gitError("failed to read worktree status", dir, err)
	}
	if status.IsClean() {
		slog.Info("Deploy directory unchanged; nothing to commit", logfields.Path(dir))
		return plumbing.ZeroHash, nil
	}

	hash, err := w.Commit(g.opts.Message, &git.CommitOptions{
		All: true,
		Author: &object.Signature{
			Name:  g.opts.AuthorName,
			Email: g.opts.AuthorEmail,
			When:  g.opts.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, gitError("failed to commit deploy directory", dir, err)
	}
	slog.Info("Committed deploy directory", logfields.Path(dir), slog.String("commit", hash.String()), slog.Int("changes", len(status)))
	return hash, nil
}

func gitError(msg, dir string, err error) error {
	return errors.RuntimeError(msg).
		WithCause(err).
		WithContext("path", dir).
		Build()
}
