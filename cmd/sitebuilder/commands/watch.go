package commands

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/daemon"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	SiteArgs
	BuildFlags
	Quiet time.Duration `default:"300ms" help:"How long the source tree must stay unchanged before rebuilding"`
}

func (w *WatchCmd) Run(g *Global, _ *CLI) error {
	s, err := newSession(w.SiteArgs, w.BuildFlags)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	first, err := s.run(ctx)
	if err != nil {
		slog.Error("Initial build failed; waiting for changes", logfields.Error(err))
	} else {
		printResult(g, first)
	}
	// Cleaning is for the first build only: rebuilds overwrite in place.
	s.request.Options.Clean = false
	s.cfg.Clean = false

	runner, err := daemon.NewRunner(rebuild(g, s))
	if err != nil {
		return err
	}
	deployDir := first.DeployDir
	if deployDir == "" {
		deployDir = filepath.Join(w.Source, site.DefaultDeployDir)
	}
	watcher, err := daemon.NewWatcher(daemon.WatcherOptions{
		Root:        w.Source,
		DeployDir:   deployDir,
		Runner:      runner,
		QuietWindow: w.Quiet,
	})
	if err != nil {
		return err
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return runner.Run(ctx) })
	eg.Go(func() error { return watcher.Run(ctx) })
	err = eg.Wait()
	slog.Info("Watch stopped", slog.Int64("rebuilds", runner.Runs()))
	return err
}

// rebuild adapts the session to a daemon.BuildFunc.
func rebuild(g *Global, s *session) daemon.BuildFunc {
	return func(ctx context.Context) error {
		result, err := s.run(ctx)
		if err != nil {
			return err
		}
		printResult(g, result)
		return nil
	}
}
