package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu        sync.Mutex
	fail      bool
	published []Entry
}

func (f *fakeSink) Publish(_ context.Context, entry Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, entry)
	return nil
}

func (f *fakeSink) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorkerForwardsAndDrainsOnShutdown(t *testing.T) {
	sink := &fakeSink{}
	w := NewWorker(sink, 8, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := 0; i < 5; i++ {
		require.True(t, w.Enqueue(Entry{Action: ActionOfficerLogin}))
	}
	require.Eventually(t, func() bool { return sink.count() > 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, 5, sink.count())
}

func TestWorkerEnqueueNeverBlocks(t *testing.T) {
	w := NewWorker(&fakeSink{}, 1, quietLogger())

	assert.True(t, w.Enqueue(Entry{}))
	assert.False(t, w.Enqueue(Entry{}))
}

func TestWorkerHealthFollowsBreaker(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{fail: true}
	w := NewWorker(sink, 1, quietLogger())

	for i := 0; i < 4; i++ {
		w.publish(ctx, Entry{})
	}
	assert.NoError(t, w.Health(ctx))

	w.publish(ctx, Entry{})
	assert.ErrorIs(t, w.Health(ctx), ErrForwardingDegraded)

	sink.setFail(false)
	w.publish(ctx, Entry{})
	assert.Error(t, w.Health(ctx))
	w.publish(ctx, Entry{})
	assert.NoError(t, w.Health(ctx))
	assert.Equal(t, 2, sink.count())
}

// blockingSink never completes a publish on its own; it only returns once the
// caller's context gives up.
type blockingSink struct {
	mu       sync.Mutex
	attempts int
}

func (b *blockingSink) Publish(ctx context.Context, _ Entry) error {
	b.mu.Lock()
	b.attempts++
	b.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (b *blockingSink) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

func TestWorkerHungSinkOpensBreakerAndShutsDown(t *testing.T) {
	sink := &blockingSink{}
	w := NewWorker(sink, 16, quietLogger(),
		WithPublishTimeout(20*time.Millisecond),
		WithDrainTimeout(100*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := 0; i < 5; i++ {
		require.True(t, w.Enqueue(Entry{Action: ActionOfficerLogin}))
	}
	require.Eventually(t, func() bool {
		return errors.Is(w.Health(context.Background()), ErrForwardingDegraded)
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 5, sink.count())

	for i := 0; i < 10; i++ {
		require.True(t, w.Enqueue(Entry{Action: ActionOfficerLogin}))
	}
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker blocked shutdown on a hung sink")
	}
}
