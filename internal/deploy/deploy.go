// Package deploy publishes a generated deploy directory.
package deploy

import "context"

// Deployer is run once after a successful generate step.
type Deployer interface {
	Name() string
	Deploy(ctx context.Context, dir string) error
}

// Noop leaves the deploy directory as it is.
type Noop struct{}

func (Noop) Name() string                               { return "none" }
func (Noop) Deploy(ctx context.Context, _ string) error { return ctx.Err() }
