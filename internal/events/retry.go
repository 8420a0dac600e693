package events

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
)

// RetryingPublisher retries failed publishes according to a retry.Policy.
type RetryingPublisher struct {
	next   Publisher
	policy retry.Policy
}

func NewRetryingPublisher(next Publisher, policy retry.Policy) *RetryingPublisher {
	return &RetryingPublisher{next: next, policy: policy}
}

func (r *RetryingPublisher) Publish(ctx context.Context, ev BuildEvent) error {
	return r.policy.Do(ctx, func(attempt int) error {
		err := r.next.Publish(ctx, ev)
		if err != nil && attempt < r.policy.MaxRetries {
			slog.Debug("Publish failed; retrying",
				slog.String("type", string(ev.Type)),
				slog.Int("attempt", attempt+1),
				logfields.Error(err))
		}
		return err
	})
}

func (r *RetryingPublisher) Close() error { return r.next.Close() }
