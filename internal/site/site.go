// Package site drives a full build: it loads layouts and posts, aggregates
// posts by category, writes posts, pages and static files to the deploy
// directory and finally hands that directory to a deployer.
package site

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/deploy"
	"git.home.luguber.info/inful/sitebuilder/internal/document"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/meta"
	"git.home.luguber.info/inful/sitebuilder/internal/render"
)

// DefaultDeployDir is the deploy directory used when none is given, relative
// to the site root.
const DefaultDeployDir = "_deploy"

// ErrInvalidState is the cause of errors for operations called out of order.
var ErrInvalidState = stderrors.New("invalid site state")

// State is the position of a Site in its lifecycle.
type State int

const (
	StateCreated State = iota
	StateRead
	StateGenerated
	StateDeployed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRead:
		return "read"
	case StateGenerated:
		return "generated"
	case StateDeployed:
		return "deployed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options configures a Site. Only Root is required.
type Options struct {
	Root     string
	Deploy   string              // Defaults to <Root>/_deploy
	Config   *config.Config      // Defaults to config.Default()
	Env      *render.Environment // Defaults to render.NewEnvironment()
	Deployer deploy.Deployer     // Defaults to deploy.Noop
	Now      func() time.Time    // Build timestamp source; defaults to time.Now
}

// Site is a single build of one source tree. It is not reusable: create a new
// Site for every build.
type Site struct {
	root      string
	deployDir string
	cfg       *config.Config
	env       *render.Environment
	deployer  deploy.Deployer

	state   State
	base    *meta.Context
	siteCtx *meta.Context

	layouts    *document.LayoutSet
	posts      []*document.Post
	categories *Categories
	summary    *Summary
}

// New validates the options and prepares the base context.
func New(opts Options) (*Site, error) {
	if opts.Root == "" {
		return nil, errors.ValidationError("site root is required").Build()
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, errors.FileSystemError("failed to resolve site root").WithCause(err).Build()
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.FileSystemError("site root is not accessible").
			WithCause(err).
			WithContext("path", root).
			Build()
	}
	if !info.IsDir() {
		return nil, errors.FileSystemError("site root is not a directory").WithContext("path", root).Build()
	}

	deployDir := opts.Deploy
	if deployDir == "" {
		deployDir = filepath.Join(root, DefaultDeployDir)
	}
	if deployDir, err = filepath.Abs(deployDir); err != nil {
		return nil, errors.FileSystemError("failed to resolve deploy directory").WithCause(err).Build()
	}

	s := &Site{
		root:      root,
		deployDir: deployDir,
		cfg:       opts.Config,
		env:       opts.Env,
		deployer:  opts.Deployer,
		state:     StateCreated,
		layouts:   document.NewLayoutSet(),
	}
	if s.cfg == nil {
		s.cfg = config.Default()
	}
	if s.env == nil {
		s.env = render.NewEnvironment()
	}
	if s.deployer == nil {
		s.deployer = deploy.Noop{}
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	s.base, s.siteCtx = baseContext(s.cfg, now())
	return s, nil
}

// baseContext builds the context every document starts from. The nested site
// mapping is shared by all copies, so posts and categories set on it later are
// visible to every document.
func baseContext(cfg *config.Config, now time.Time) (*meta.Context, *meta.Context) {
	site := meta.New()
	site.Set("time", meta.Time(now))
	site.Set("title", meta.String(cfg.Title))
	site.Set("url", meta.String(cfg.URL))
	site.Set("vars", meta.FromAny(cfg.Vars))
	site.Set("posts", meta.List())
	site.Set("categories", meta.Map(meta.New()))

	base := meta.New()
	base.Set("site", meta.Map(site))
	return base, site
}

func (s *Site) Root() string                     { return s.root }
func (s *Site) DeployDir() string                { return s.deployDir }
func (s *Site) State() State                     { return s.state }
func (s *Site) Context() *meta.Context           { return s.base }
func (s *Site) Layouts() *document.LayoutSet     { return s.layouts }
func (s *Site) Posts() []*document.Post          { return s.posts }
func (s *Site) Categories() *Categories          { return s.categories }
func (s *Site) Environment() *render.Environment { return s.env }

// Summary returns the result of Generate, or nil before it ran.
func (s *Site) Summary() *Summary { return s.summary }

func (s *Site) expect(want State, op string) error {
	if s.state == want {
		return nil
	}
	return errors.InternalError(op+" called in wrong state").
		WithCause(ErrInvalidState).
		WithContext("state", s.state.String()).
		WithContext("expected", want.String()).
		Build()
}

// Deploy hands the generated deploy directory to the configured deployer.
func (s *Site) Deploy(ctx context.Context) error {
	if err := s.expect(StateGenerated, "deploy"); err != nil {
		return err
	}
	slog.Info("Deploying site", logfields.Output(s.deployDir), logfields.Kind(s.deployer.Name()))
	if err := s.deployer.Deploy(ctx, s.deployDir); err != nil {
		return err
	}
	s.state = StateDeployed
	return nil
}

// Build runs Read, Generate and Deploy in order.
func (s *Site) Build(ctx context.Context) (*Summary, error) {
	if err := s.Read(ctx); err != nil {
		return nil, err
	}
	summary, err := s.Generate(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Deploy(ctx); err != nil {
		return summary, err
	}
	return summary, nil
}
