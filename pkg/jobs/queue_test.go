package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	queue := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 5, RetryDelay: time.Millisecond})

	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job{Key: "k1", Type: "deduct"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, queue.Drain(ctx))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Zero(t, queue.Pending())
}

func TestQueueDropsAfterMaxRetries(t *testing.T) {
	var mu sync.Mutex
	var dropped []string
	queue := NewQueue("test", func(ctx context.Context, job Job) error {
		return errors.New("permanent")
	}, QueueConfig{
		Workers:    2,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnDrop: func(job Job, err error) {
			mu.Lock()
			dropped = append(dropped, job.Key)
			mu.Unlock()
		},
	})

	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Enqueue(Job{Key: "k1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, queue.Drain(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"k1"}, dropped)
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	queue := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, queue.Enqueue(Job{Key: "k"}))
}

func TestRunEveryTicksUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32
	RunEvery(ctx, "tick", 5*time.Millisecond, true, nil, func(context.Context) {
		atomic.AddInt32(&runs, 1)
	})

	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, time.Millisecond)
	cancel()
}

func TestQueueIgnoresParentCancellation(t *testing.T) {
	var calls int32
	queue := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, QueueConfig{Workers: 1})

	parent, cancel := context.WithCancel(context.Background())
	queue.Start(parent)
	cancel()

	require.NoError(t, queue.Enqueue(Job{Key: "k1"}))
	ctx, drainCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer drainCancel()
	require.NoError(t, queue.Drain(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, queue.Stop())
}

func TestQueueStopReturnsUnsettledJobs(t *testing.T) {
	var calls int32
	queue := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("transient")
	}, QueueConfig{Workers: 1, MaxRetries: 5, RetryDelay: time.Hour})

	queue.Start(context.Background())
	require.NoError(t, queue.Enqueue(Job{Key: "k1", Type: "deduct"}))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, time.Millisecond)

	left := queue.Stop()
	require.Len(t, left, 1)
	assert.Equal(t, "k1", left[0].Key)
	assert.Zero(t, queue.Pending())
	assert.Error(t, queue.Enqueue(Job{Key: "k2"}))
}
