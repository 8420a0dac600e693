// Package buildstore keeps a history of builds and the fingerprints of the
// files each build wrote.
package buildstore

import (
	"context"
	"time"
)

// Status is the final status of a recorded build.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Build is one recorded build.
type Build struct {
	ID         string
	Source     string
	Deploy     string
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time
	Posts      int
	Pages      int
	Static     int
	Changed    int    // Outputs whose fingerprint differs from the previous successful build
	Error      string // Set for failed builds
}

// Duration is how long the build ran.
func (b Build) Duration() time.Duration { return b.FinishedAt.Sub(b.StartedAt) }

// Output is one file written by a build.
type Output struct {
	Path        string
	Source      string
	Kind        string
	Fingerprint string
}

// Store persists build history.
type Store interface {
	RecordBuild(ctx context.Context, b Build, outputs []Output) error
	ListBuilds(ctx context.Context, limit int) ([]Build, error)
	Outputs(ctx context.Context, buildID string) ([]Output, error)
	// LastFingerprints returns path -> fingerprint for the latest successful
	// build of source, or an empty map when there is none.
	LastFingerprints(ctx context.Context, source string) (map[string]string, error)
	Close() error
}
