// Package events publishes build lifecycle notifications.
package events

import "time"

// Type names a build lifecycle event. It is appended to the configured subject.
type Type string

const (
	BuildStarted   Type = "build.started"
	BuildCompleted Type = "build.completed"
	BuildFailed    Type = "build.failed"
)

// BuildEvent is the JSON payload published for each lifecycle transition.
type BuildEvent struct {
	Type      Type      `json:"type"`
	BuildID   string    `json:"build_id"`
	Source    string    `json:"source"`
	Deploy    string    `json:"deploy"`
	Timestamp time.Time `json:"timestamp"`

	// Populated on completion
	Posts      int     `json:"posts,omitempty"`
	Pages      int     `json:"pages,omitempty"`
	Static     int     `json:"static,omitempty"`
	Changed    int     `json:"changed,omitempty"`
	DurationMS float64 `json:"duration_ms,omitempty"`

	// Populated on failure
	Error    string `json:"error,omitempty"`
	Category string `json:"category,omitempty"`
}
