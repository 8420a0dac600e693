package daemon

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// BuildFunc performs one full build.
type BuildFunc func(ctx context.Context) error

// Runner executes builds one at a time.
type Runner struct {
	build    BuildFunc
	requests chan string
	running  atomic.Bool
	runs     atomic.Int64
}

func NewRunner(build BuildFunc) (*Runner, error) {
	if build == nil {
		return nil, ferrors.ValidationError("build function is required").Build()
	}
	return &Runner{build: build, requests: make(chan string, 1)}, nil
}

// Request asks for a build. It never blocks: while a build is pending, further
// requests are folded into it.
func (r *Runner) Request(reason string) {
	select {
	case r.requests <- reason:
		slog.Debug("Build requested", slog.String("reason", reason))
	default:
		slog.Debug("Build already pending", slog.String("reason", reason))
	}
}

// Running reports whether a build is in progress.
func (r *Runner) Running() bool { return r.running.Load() }

// Runs returns the number of builds started so far.
func (r *Runner) Runs() int64 { return r.runs.Load() }

// Run serves requests until ctx is canceled. Build errors are logged; they
// never stop the runner.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-r.requests:
			r.runOnce(ctx, reason)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, reason string) {
	r.running.Store(true)
	defer r.running.Store(false)
	r.runs.Add(1)

	start := time.Now()
	slog.Info("Rebuilding site", slog.String("reason", reason))
	if err := r.build(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("Rebuild failed", slog.String("reason", reason), logfields.Error(err))
		return
	}
	slog.Info("Rebuild complete",
		slog.String("reason", reason),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}
