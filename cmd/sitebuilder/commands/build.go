package commands

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	SiteArgs
	BuildFlags
}

func (b *BuildCmd) Run(g *Global, _ *CLI) error {
	s, err := newSession(b.SiteArgs, b.BuildFlags)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := s.run(ctx)
	if err != nil {
		return err
	}
	printResult(g, result)
	return nil
}

func printResult(g *Global, r *build.BuildResult) {
	_, _ = fmt.Fprintf(g.out(), "Built %s in %s: %d posts, %d pages, %d static files (%d changed)\n",
		r.DeployDir, r.Duration.Round(time.Millisecond), r.Summary.Posts, r.Summary.Pages, r.Summary.Static, r.Changed)
}
