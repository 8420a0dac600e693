package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// BuildService is the canonical interface for executing site builds.
type BuildService interface {
	// Run executes read → generate → deploy for one source tree.
	// The result is returned even when err is non-nil.
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest contains all inputs required to execute a build.
type BuildRequest struct {
	// Root is the site source directory.
	Root string

	// Deploy is the output directory. Empty means <Root>/_deploy.
	Deploy string

	// Config is the site configuration. Nil loads it from Root.
	Config *config.Config

	Options BuildOptions
}

// BuildOptions override configuration for a single run.
type BuildOptions struct {
	// Clean removes the deploy directory contents (except .git) first.
	Clean bool

	// Concurrency bounds parallel post work. 0 keeps the configured value.
	Concurrency int

	// MetricsFile is a Prometheus textfile written after the build.
	// Empty keeps the configured value.
	MetricsFile string
}

// BuildResult contains the outcome of a build execution.
type BuildResult struct {
	BuildID   string
	Status    BuildStatus
	Root      string
	DeployDir string

	// Summary is nil unless generation finished.
	Summary *site.Summary

	// Changed counts outputs whose fingerprint differs from the previous
	// successful build recorded in the history store. It equals the number
	// of outputs when no history exists.
	Changed int

	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	BuildStatusSuccess   BuildStatus = "success"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state.
func (s BuildStatus) IsTerminal() bool {
	return s == BuildStatusSuccess || s == BuildStatusFailed || s == BuildStatusCancelled
}

// IsSuccess returns true if the build completed successfully.
func (s BuildStatus) IsSuccess() bool { return s == BuildStatusSuccess }
