package commands

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/daemon"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// ScheduleCmd implements the 'schedule' command.
type ScheduleCmd struct {
	SiteArgs
	BuildFlags
	Every time.Duration `default:"1h" help:"Rebuild interval"`
	Cron  string        `help:"Cron expression; replaces --every when set"`
}

func (c *ScheduleCmd) Run(g *Global, _ *CLI) error {
	s, err := newSession(c.SiteArgs, c.BuildFlags)
	if err != nil {
		return err
	}
	defer s.Close()

	runner, err := daemon.NewRunner(rebuild(g, s))
	if err != nil {
		return err
	}
	scheduler, err := daemon.NewScheduler()
	if err != nil {
		return errors.RuntimeError("failed to start scheduler").WithCause(err).Build()
	}
	if c.Cron != "" {
		_, err = scheduler.ScheduleCron("rebuild", c.Cron, func() { runner.Request("cron") })
	} else {
		_, err = scheduler.ScheduleRebuilds(runner, c.Every)
	}
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	runner.Request("startup")
	scheduler.Start(ctx)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return runner.Run(ctx) })
	eg.Go(func() error {
		<-ctx.Done()
		return scheduler.Stop(context.WithoutCancel(ctx))
	})
	err = eg.Wait()
	slog.Info("Schedule stopped", slog.Int64("builds", runner.Runs()))
	return err
}
