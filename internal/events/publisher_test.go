package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu       sync.Mutex
	messages []message
	flushErr error
	closed   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message{subject: subject, data: data})
	return nil
}

func (f *fakeConn) FlushWithContext(context.Context) error { return f.flushErr }

func (f *fakeConn) Close() { f.closed = true }

func TestNATSPublisher_PublishesJSONOnTypedSubject(t *testing.T) {
	fc := &fakeConn{}
	p := newNATSPublisher(fc, "sitebuilder.build")

	ts := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	err := p.Publish(t.Context(), BuildEvent{
		Type:      BuildCompleted,
		BuildID:   "abc",
		Source:    "/srv/site",
		Timestamp: ts,
		Posts:     3,
	})
	require.NoError(t, err)

	require.Len(t, fc.messages, 1)
	assert.Equal(t, "sitebuilder.build.build.completed", fc.messages[0].subject)

	var got map[string]any
	require.NoError(t, json.Unmarshal(fc.messages[0].data, &got))
	assert.Equal(t, "build.completed", got["type"])
	assert.Equal(t, "abc", got["build_id"])
	assert.Equal(t, float64(3), got["posts"])
	assert.NotContains(t, got, "error")
	assert.Equal(t, "2024-03-05T12:00:00Z", got["timestamp"])
}

func TestNATSPublisher_StampsMissingTimestamp(t *testing.T) {
	fc := &fakeConn{}
	p := newNATSPublisher(fc, "s")
	require.NoError(t, p.Publish(t.Context(), BuildEvent{Type: BuildStarted}))

	var ev BuildEvent
	require.NoError(t, json.Unmarshal(fc.messages[0].data, &ev))
	assert.False(t, ev.Timestamp.IsZero())
}

func TestNATSPublisher_FlushFailure(t *testing.T) {
	fc := &fakeConn{flushErr: errors.New("timeout")}
	p := newNATSPublisher(fc, "s")
	err := p.Publish(t.Context(), BuildEvent{Type: BuildFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush")

	require.NoError(t, p.Close())
	assert.True(t, fc.closed)
}

func TestNewNATSPublisher_RequiresSettings(t *testing.T) {
	_, err := NewNATSPublisher("", "s")
	require.Error(t, err)
	_, err = NewNATSPublisher("nats://127.0.0.1:4222", "")
	require.Error(t, err)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	require.NoError(t, p.Publish(t.Context(), BuildEvent{Type: BuildStarted}))
	require.NoError(t, p.Close())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.ErrorIs(t, p.Publish(ctx, BuildEvent{}), context.Canceled)
}
