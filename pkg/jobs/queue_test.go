package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan Job[string], 2)
	q := NewQueue("test", func(_ context.Context, job Job[string]) error {
		done <- job
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), "a"))
	require.NoError(t, q.TryEnqueue("b"))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case job := <-done:
			assert.NotEmpty(t, job.ID)
			assert.False(t, job.Enqueued.IsZero())
			seen[job.Payload] = true
		case <-time.After(time.Second):
			t.Fatal("job not processed")
		}
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true}, seen)
}

func TestQueueRetriesWithBackoff(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("retry", func(_ context.Context, job Job[int]) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		assert.Equal(t, 2, job.Attempt)
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.TryEnqueue(1))

	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Eventually(t, func() bool { return q.Stats().Processed == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(2), q.Stats().Retried)
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	q := NewQueue("fail", func(context.Context, Job[int]) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("permanent")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	require.NoError(t, q.TryEnqueue(1))

	assert.Eventually(t, func() bool { return q.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	q.Stop()
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	release := make(chan struct{})
	var handled int32
	q := NewQueue("drain", func(context.Context, Job[int]) error {
		<-release
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4, DrainTimeout: time.Second})
	q.Start(context.Background())

	for i := 0; i < 3; i++ {
		require.NoError(t, q.TryEnqueue(i))
	}
	close(release)
	q.Stop()

	assert.Equal(t, int32(3), atomic.LoadInt32(&handled))
	assert.ErrorIs(t, q.TryEnqueue(4), ErrNotRunning)
}

func TestQueueRejects(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job[int]) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.TryEnqueue(1), ErrNotRunning)
	assert.ErrorIs(t, q.Enqueue(context.Background(), 1), ErrNotRunning)

	block := make(chan struct{})
	full := NewQueue("full", func(context.Context, Job[int]) error { <-block; return nil }, QueueConfig{Workers: 1, BufferSize: 1})
	full.Start(context.Background())
	defer full.Stop()
	defer close(block)

	require.NoError(t, full.TryEnqueue(1))
	assert.Eventually(t, func() bool { return full.Stats().Pending == 0 }, time.Second, time.Millisecond)
	require.NoError(t, full.TryEnqueue(2))
	assert.ErrorIs(t, full.TryEnqueue(3), ErrQueueFull)
	assert.Equal(t, uint64(1), full.Stats().Rejected)
}

func TestBackoffIsCapped(t *testing.T) {
	q := NewQueue("b", func(context.Context, Job[int]) error { return nil }, QueueConfig{RetryDelay: time.Second, MaxRetryDelay: 5 * time.Second})
	assert.Equal(t, time.Second, q.backoff(1))
	assert.Equal(t, 2*time.Second, q.backoff(2))
	assert.Equal(t, 4*time.Second, q.backoff(3))
	assert.Equal(t, 5*time.Second, q.backoff(4))
}
