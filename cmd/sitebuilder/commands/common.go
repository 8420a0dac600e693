package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/buildstore"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/events"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer // User-facing output; defaults to stdout
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" help:"Build the site once"`
	Watch    WatchCmd    `cmd:"" help:"Build, then rebuild whenever the source tree changes"`
	Schedule ScheduleCmd `cmd:"" help:"Build, then rebuild on a fixed interval or cron schedule"`
	History  HistoryCmd  `cmd:"" help:"List recorded builds"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// SiteArgs are the positional arguments shared by every build command.
type SiteArgs struct {
	Source string `arg:"" type:"existingdir" help:"Site source directory"`
	Deploy string `arg:"" optional:"" help:"Deploy directory (default: <source>/_deploy)"`
}

// BuildFlags override the site configuration for one invocation.
type BuildFlags struct {
	Clean       bool   `help:"Empty the deploy directory (except .git) before building"`
	Concurrency int    `help:"Parallel post workers (default: from config, else number of CPUs)"`
	MetricsFile string `name:"metrics-file" help:"Write Prometheus metrics to this textfile after each build"`
	HistoryDB   string `name:"history-db" help:"Record builds in this SQLite database"`
}

// session bundles what a command needs to run builds for one site.
type session struct {
	cfg     *config.Config
	service *build.DefaultBuildService
	request build.BuildRequest
	closers []func() error
}

func (s *session) run(ctx context.Context) (*build.BuildResult, error) {
	return s.service.Run(ctx, s.request)
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Warn("Failed to release resource", logfields.Error(err))
		}
	}
}

// newSession loads the site configuration and wires the build service with
// metrics, history and event publishing as configured.
func newSession(args SiteArgs, flags BuildFlags) (*session, error) {
	cfg, err := config.Load(args.Source)
	if err != nil {
		return nil, err
	}
	if flags.HistoryDB != "" {
		cfg.HistoryDB = flags.HistoryDB
	}

	reg := prom.NewRegistry()
	svc := build.NewBuildService().
		WithRecorder(metrics.NewPrometheusRecorder(reg)).
		WithGatherer(reg)
	s := &session{
		cfg:     cfg,
		service: svc,
		request: build.BuildRequest{
			Root:   args.Source,
			Deploy: args.Deploy,
			Config: cfg,
			Options: build.BuildOptions{
				Clean:       flags.Clean,
				Concurrency: flags.Concurrency,
				MetricsFile: flags.MetricsFile,
			},
		},
	}

	if cfg.HistoryDB != "" {
		store, err := buildstore.Open(cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		svc.WithStore(store)
		s.closers = append(s.closers, store.Close)
	}

	if cfg.Events.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			// Builds must not depend on the event bus being reachable.
			slog.Warn("Build events disabled", slog.String("url", cfg.Events.NATSURL), logfields.Error(err))
		} else {
			svc.WithPublisher(events.NewRetryingPublisher(pub, retry.FromEvents(cfg.Events)))
			s.closers = append(s.closers, pub.Close)
		}
	}
	return s, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
