package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"giveora.backend/pkg/metrics"
)

type recordingSender struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []*Email
	block    chan struct{}
}

func (s *recordingSender) Send(_ context.Context, email *Email) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("smtp unavailable")
	}
	s.sent = append(s.sent, email)
	return nil
}

func (s *recordingSender) snapshot() (int, []*Email) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, append([]*Email(nil), s.sent...)
}

func (s *recordingSender) waitCalls(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		calls, _ := s.snapshot()
		return calls >= n
	}, time.Second, time.Millisecond)
}

func newTestDispatcher(t *testing.T, sender Sender, cfg DispatcherConfig) *Dispatcher {
	t.Helper()
	r, err := NewRenderer("GiveOra")
	require.NoError(t, err)
	return NewDispatcher(sender, r, cfg)
}

func resetMessage(to string) Message {
	return Message{
		To:       to,
		Name:     "User",
		Template: TemplatePasswordResetCode,
		Data:     map[string]any{"Code": "123456", "ExpiresAt": "3:04 PM", "ExpiresInMinutes": 15},
	}
}

func TestDispatcher_DeliversQueuedMessages(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(t, sender, DispatcherConfig{Workers: 2, QueueSize: 8, MaxAttempts: 1})
	d.Start(context.Background())

	require.NoError(t, d.Enqueue(context.Background(), resetMessage("a@giveora.org")))
	require.NoError(t, d.Enqueue(context.Background(), resetMessage("b@giveora.org")))
	d.Stop()

	calls, sent := sender.snapshot()
	assert.Equal(t, 2, calls)
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Text, "123456")
}

func TestDispatcher_RetriesThenSucceeds(t *testing.T) {
	sender := &recordingSender{failures: 2}
	d := newTestDispatcher(t, sender, DispatcherConfig{Workers: 1, QueueSize: 1, MaxAttempts: 3, RetryDelay: time.Millisecond})
	d.Start(context.Background())

	require.NoError(t, d.Enqueue(context.Background(), resetMessage("a@giveora.org")))
	sender.waitCalls(t, 3)
	d.Stop()

	calls, sent := sender.snapshot()
	assert.Equal(t, 3, calls)
	assert.Len(t, sent, 1)
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	sender := &recordingSender{failures: 10}
	d := newTestDispatcher(t, sender, DispatcherConfig{Workers: 1, QueueSize: 1, MaxAttempts: 2, RetryDelay: time.Millisecond})
	d.Start(context.Background())

	require.NoError(t, d.Enqueue(context.Background(), resetMessage("a@giveora.org")))
	sender.waitCalls(t, 2)
	d.Stop()

	calls, sent := sender.snapshot()
	assert.Equal(t, 2, calls)
	assert.Empty(t, sent)
}

func TestDispatcher_StopAbandonsPendingRetries(t *testing.T) {
	sender := &recordingSender{failures: 10}
	d := newTestDispatcher(t, sender, DispatcherConfig{Workers: 1, QueueSize: 1, MaxAttempts: 3, RetryDelay: time.Hour})
	d.Start(context.Background())
	failed := metrics.Notifications.WithLabelValues(string(TemplatePasswordResetCode), "failed")
	before := testutil.ToFloat64(failed)

	require.NoError(t, d.Enqueue(context.Background(), resetMessage("a@giveora.org")))
	sender.waitCalls(t, 1)

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop waited out the retry backoff")
	}

	calls, sent := sender.snapshot()
	assert.Equal(t, 1, calls)
	assert.Empty(t, sent)
	assert.Equal(t, before+1, testutil.ToFloat64(failed))
}

func TestDispatcher_QueueFullAndStopped(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := newTestDispatcher(t, sender, DispatcherConfig{Workers: 1, QueueSize: 1, MaxAttempts: 1})
	d.Start(context.Background())

	// first message occupies the worker, second fills the queue
	require.NoError(t, d.Enqueue(context.Background(), resetMessage("a@giveora.org")))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, d.Enqueue(context.Background(), resetMessage("b@giveora.org")))

	err := d.Enqueue(context.Background(), resetMessage("c@giveora.org"))
	require.ErrorIs(t, err, ErrQueueFull)

	close(sender.block)
	d.Stop()
	require.ErrorIs(t, d.Enqueue(context.Background(), resetMessage("d@giveora.org")), ErrDispatcherStopped)

	calls, _ := sender.snapshot()
	assert.Equal(t, 2, calls)
}

func TestDispatcher_RenderFailureIsNotSent(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(t, sender, DispatcherConfig{Workers: 1, QueueSize: 1, MaxAttempts: 1})
	d.Start(context.Background())

	require.NoError(t, d.Enqueue(context.Background(), Message{To: "a@giveora.org", Template: "missing"}))
	d.Stop()

	calls, _ := sender.snapshot()
	assert.Zero(t, calls)
}
