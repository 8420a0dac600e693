package build

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitebuilder/internal/buildstore"
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/deploy"
	"git.home.luguber.info/inful/sitebuilder/internal/events"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/observability"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// Stage names used for timing and logging.
const (
	StageRead     = "read"
	StageGenerate = "generate"
	StageDeploy   = "deploy"
)

// DefaultBuildService is the standard implementation of BuildService.
type DefaultBuildService struct {
	recorder   metrics.Recorder
	gatherer   prom.Gatherer
	publisher  events.Publisher
	store      buildstore.Store
	deployer   deploy.Deployer
	envFactory func() *render.Environment
	now        func() time.Time
}

// NewBuildService creates a service that records nothing and publishes nothing
// until configured with the With* methods.
func NewBuildService() *DefaultBuildService {
	return &DefaultBuildService{
		recorder:   metrics.NoopRecorder{},
		publisher:  events.Noop{},
		envFactory: render.NewEnvironment,
		now:        time.Now,
	}
}

// WithRecorder sets the metrics recorder.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithGatherer sets the registry exported to the metrics textfile.
func (s *DefaultBuildService) WithGatherer(g prom.Gatherer) *DefaultBuildService {
	s.gatherer = g
	return s
}

// WithPublisher sets the build event publisher.
func (s *DefaultBuildService) WithPublisher(p events.Publisher) *DefaultBuildService {
	if p != nil {
		s.publisher = p
	}
	return s
}

// WithStore enables build history.
func (s *DefaultBuildService) WithStore(st buildstore.Store) *DefaultBuildService {
	s.store = st
	return s
}

// WithDeployer overrides the deployer selected from configuration.
func (s *DefaultBuildService) WithDeployer(d deploy.Deployer) *DefaultBuildService {
	s.deployer = d
	return s
}

// WithEnvironmentFactory sets how each build gets its render environment,
// letting hosts register extra filters and transformers.
func (s *DefaultBuildService) WithEnvironmentFactory(f func() *render.Environment) *DefaultBuildService {
	if f != nil {
		s.envFactory = f
	}
	return s
}

// WithClock overrides the time source (for tests).
func (s *DefaultBuildService) WithClock(now func() time.Time) *DefaultBuildService {
	if now != nil {
		s.now = now
	}
	return s
}

// DeployerFor returns the deployer selected by cfg.
func DeployerFor(cfg config.DeployConfig) deploy.Deployer {
	if config.NormalizeDeployType(string(cfg.Type)) == config.DeployGit {
		return deploy.NewGit(deploy.GitOptions{
			AuthorName:  cfg.AuthorName,
			AuthorEmail: cfg.AuthorEmail,
			Message:     cfg.Message,
		})
	}
	return deploy.Noop{}
}

// Run executes the complete build pipeline.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	startTime := s.now()
	result := &BuildResult{
		BuildID:   uuid.NewString(),
		StartTime: startTime,
		Root:      req.Root,
		DeployDir: req.Deploy,
	}
	ctx = observability.WithBuildID(ctx, result.BuildID)

	cfg, err := s.resolveConfig(req)
	if err != nil {
		return s.finish(ctx, result, nil, err)
	}
	deployer := s.deployer
	if deployer == nil {
		deployer = DeployerFor(cfg.Deploy)
	}
	st, err := site.New(site.Options{
		Root:     req.Root,
		Deploy:   req.Deploy,
		Config:   cfg,
		Env:      s.envFactory(),
		Deployer: deployer,
		Now:      s.now,
	})
	if err != nil {
		return s.finish(ctx, result, cfg, err)
	}
	result.Root = st.Root()
	result.DeployDir = st.DeployDir()
	ctx = observability.WithSource(ctx, result.Root)

	observability.InfoContext(ctx, "Build starting", logfields.Output(result.DeployDir))
	s.publish(ctx, events.BuildEvent{
		Type:      events.BuildStarted,
		BuildID:   result.BuildID,
		Source:    result.Root,
		Deploy:    result.DeployDir,
		Timestamp: startTime,
	})

	if req.Options.Clean || cfg.Clean {
		if err := cleanDeployDir(result.Root, result.DeployDir); err != nil {
			return s.finish(ctx, result, cfg, err)
		}
	}

	if err := s.stage(ctx, StageRead, st.Read); err != nil {
		return s.finish(ctx, result, cfg, err)
	}
	if err := s.stage(ctx, StageGenerate, func(ctx context.Context) error {
		summary, err := st.Generate(ctx)
		result.Summary = summary
		return err
	}); err != nil {
		return s.finish(ctx, result, cfg, err)
	}
	if err := s.stage(ctx, StageDeploy, st.Deploy); err != nil {
		return s.finish(ctx, result, cfg, err)
	}
	return s.finish(ctx, result, cfg, nil)
}

func (s *DefaultBuildService) resolveConfig(req BuildRequest) (*config.Config, error) {
	if req.Root == "" {
		return nil, errors.ValidationError("site root is required").Build()
	}
	cfg := req.Config
	if cfg == nil {
		loaded, err := config.Load(req.Root)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	// Overrides apply to a copy so a shared config stays untouched.
	c := *cfg
	if req.Options.Concurrency > 0 {
		c.Concurrency = req.Options.Concurrency
	}
	if req.Options.MetricsFile != "" {
		c.MetricsFile = req.Options.MetricsFile
	}
	return &c, nil
}

func (s *DefaultBuildService) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx = observability.WithStage(ctx, name)
	start := s.now()
	observability.DebugContext(ctx, "Stage starting")
	err := fn(ctx)
	d := s.now().Sub(start)
	s.recorder.ObserveStageDuration(name, d)

	switch {
	case err == nil:
		s.recorder.IncStageResult(name, metrics.ResultSuccess)
		observability.InfoContext(ctx, "Stage complete", logfields.DurationMS(float64(d.Milliseconds())))
	case isCanceled(ctx, err):
		s.recorder.IncStageResult(name, metrics.ResultCanceled)
	default:
		s.recorder.IncStageResult(name, metrics.ResultFatal)
	}
	return err
}

// finish settles the result, then records, announces and exports it. Failures
// of those side channels are logged and never change the build outcome.
func (s *DefaultBuildService) finish(ctx context.Context, result *BuildResult, cfg *config.Config, buildErr error) (*BuildResult, error) {
	result.EndTime = s.now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	switch {
	case buildErr == nil:
		result.Status = BuildStatusSuccess
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
	case isCanceled(ctx, buildErr):
		result.Status = BuildStatusCancelled
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeCanceled)
	default:
		result.Status = BuildStatusFailed
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
	}
	s.recorder.ObserveBuildDuration(result.Duration)

	// Side channels must still run when the build itself was canceled.
	sideCtx := context.WithoutCancel(ctx)

	if result.Summary != nil && buildErr == nil {
		s.recorder.AddOutputs(string(site.KindPost), result.Summary.Posts)
		s.recorder.AddOutputs(string(site.KindPage), result.Summary.Pages)
		s.recorder.AddOutputs(string(site.KindStatic), result.Summary.Static)
		s.recorder.SetLastBuild(result.EndTime)
		result.Changed = s.changedOutputs(sideCtx, result)
	}
	s.record(sideCtx, result, buildErr)

	ev := events.BuildEvent{
		BuildID:    result.BuildID,
		Source:     result.Root,
		Deploy:     result.DeployDir,
		Timestamp:  result.EndTime,
		DurationMS: float64(result.Duration.Milliseconds()),
	}
	if buildErr == nil {
		ev.Type = events.BuildCompleted
		ev.Posts, ev.Pages, ev.Static = result.Summary.Posts, result.Summary.Pages, result.Summary.Static
		ev.Changed = result.Changed
		observability.InfoContext(ctx, "Build complete",
			logfields.DurationMS(float64(result.Duration.Milliseconds())),
			slog.Int("posts", ev.Posts),
			slog.Int("pages", ev.Pages),
			slog.Int("static", ev.Static),
			slog.Int("changed", ev.Changed))
	} else {
		ev.Type = events.BuildFailed
		ev.Error = buildErr.Error()
		ev.Category = string(errors.GetCategory(buildErr))
		observability.ErrorContext(ctx, "Build failed", slog.String("status", string(result.Status)), logfields.Error(buildErr))
	}
	s.publish(sideCtx, ev)

	if cfg != nil && cfg.MetricsFile != "" && s.gatherer != nil {
		if err := metrics.WriteTextfile(cfg.MetricsFile, s.gatherer); err != nil {
			observability.WarnContext(ctx, "Failed to write metrics textfile", logfields.Path(cfg.MetricsFile), logfields.Error(err))
		}
	}
	return result, buildErr
}

func (s *DefaultBuildService) changedOutputs(ctx context.Context, result *BuildResult) int {
	outputs := result.Summary.Outputs
	if s.store == nil {
		return len(outputs)
	}
	previous, err := s.store.LastFingerprints(ctx, result.Root)
	if err != nil {
		observability.WarnContext(ctx, "Failed to load previous fingerprints", logfields.Error(err))
		return len(outputs)
	}
	changed := 0
	for _, o := range outputs {
		if previous[o.Path] != o.Fingerprint {
			changed++
		}
	}
	return changed
}

func (s *DefaultBuildService) record(ctx context.Context, result *BuildResult, buildErr error) {
	if s.store == nil || result.Root == "" {
		return
	}
	b := buildstore.Build{
		ID:         result.BuildID,
		Source:     result.Root,
		Deploy:     result.DeployDir,
		Status:     buildstore.StatusSuccess,
		StartedAt:  result.StartTime,
		FinishedAt: result.EndTime,
		Changed:    result.Changed,
	}
	var outputs []buildstore.Output
	if buildErr != nil {
		b.Status = buildstore.StatusFailed
		b.Error = buildErr.Error()
	} else if result.Summary != nil {
		b.Posts, b.Pages, b.Static = result.Summary.Posts, result.Summary.Pages, result.Summary.Static
		outputs = make([]buildstore.Output, 0, len(result.Summary.Outputs))
		for _, o := range result.Summary.Outputs {
			outputs = append(outputs, buildstore.Output{
				Path:        o.Path,
				Source:      o.Source,
				Kind:        string(o.Kind),
				Fingerprint: o.Fingerprint,
			})
		}
	}
	if err := s.store.RecordBuild(ctx, b, outputs); err != nil {
		observability.WarnContext(ctx, "Failed to record build history", logfields.Error(err))
	}
}

func (s *DefaultBuildService) publish(ctx context.Context, ev events.BuildEvent) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		observability.WarnContext(ctx, "Failed to publish build event", slog.String("type", string(ev.Type)), logfields.Error(err))
	}
}

// cleanDeployDir empties dir but keeps a .git directory so the git deployer
// retains its history. A deploy dir that is or contains the root is refused.
func cleanDeployDir(root, dir string) error {
	if rel, err := filepath.Rel(dir, root); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return errors.ValidationError("deploy directory must not contain the site root").
			WithCause(ErrUnsafeClean).
			WithContext("deploy", dir).
			WithContext("root", root).
			Build()
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.FileSystemError("failed to read deploy directory").WithCause(err).WithContext("path", dir).Build()
	}
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return errors.FileSystemError("failed to clean deploy directory").
				WithCause(err).
				WithContext("path", filepath.Join(dir, e.Name())).
				Build()
		}
	}
	slog.Debug("Cleaned deploy directory", logfields.Output(dir), logfields.Count(len(entries)))
	return nil
}

func isCanceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
