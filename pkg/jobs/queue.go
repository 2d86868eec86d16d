package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Job represents a queued background task. Key is the idempotency key the
// handler is expected to honour on redelivery.
type Job struct {
	Key      string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
	// OnDrop is invoked when a job exhausts its retries.
	OnDrop func(Job, error)
}

// Queue is an in-memory job dispatcher backed by goroutines.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger
	onDrop     func(Job, error)

	jobs    chan Job
	pending int64

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	started bool

	leftMu   sync.Mutex
	leftover []Job
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		onDrop:     cfg.OnDrop,
		jobs:       make(chan Job, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call more than once. The queue
// keeps ctx values but not its cancellation: only Stop ends the workers.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(context.WithoutCancel(ctx))
	q.leftover = nil
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.workers))
}

// Stop cancels the workers and waits for them and for pending retries to
// exit. Jobs that were buffered, waiting on a retry, or interrupted mid-run
// are returned so the caller can settle them another way.
func (q *Queue) Stop() []Job {
	q.mu.RLock()
	started, cancel := q.started, q.cancel
	q.mu.RUnlock()
	if !started {
		return nil
	}

	cancel()
	q.mu.Lock()
	q.started = false
	q.mu.Unlock()
	q.wg.Wait()

	for drained := false; !drained; {
		select {
		case job := <-q.jobs:
			q.keep(job)
			q.settle()
		default:
			drained = true
		}
	}

	q.leftMu.Lock()
	left := q.leftover
	q.leftover = nil
	q.leftMu.Unlock()
	q.logger.Info("queue stopped", zap.String("queue", q.name), zap.Int("unsettled", len(left)))
	return left
}

// Drain waits until every accepted job, including scheduled retries, has
// been handled or dropped, or until ctx expires.
func (q *Queue) Drain(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for q.Pending() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Pending reports how many jobs are accepted but not yet settled.
func (q *Queue) Pending() int64 {
	return atomic.LoadInt64(&q.pending)
}

// Enqueue pushes a job onto the queue.
func (q *Queue) Enqueue(job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	ctx := q.ctx
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	q.track()
	select {
	case <-ctx.Done():
		q.settle()
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) track() {
	atomic.AddInt64(&q.pending, 1)
}

func (q *Queue) settle() {
	atomic.AddInt64(&q.pending, -1)
}

func (q *Queue) keep(job Job) {
	q.leftMu.Lock()
	q.leftover = append(q.leftover, job)
	q.leftMu.Unlock()
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				if q.ctx.Err() != nil {
					q.keep(job)
				} else {
					q.handleFailure(job, err)
				}
			}
			q.settle()
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Error("job exceeded retries",
			zap.String("queue", q.name),
			zap.String("key", job.Key),
			zap.String("type", job.Type),
			zap.Error(err),
		)
		if q.onDrop != nil {
			q.onDrop(job, err)
		}
		return
	}
	q.logger.Warn("job failed, retrying",
		zap.String("queue", q.name),
		zap.String("key", job.Key),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Error(err),
	)

	q.track()
	q.wg.Add(1)
	go func(j Job) {
		defer q.wg.Done()
		defer q.settle()
		timer := time.NewTimer(q.retryDelay * time.Duration(j.Attempt))
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.keep(j)
		case <-timer.C:
			if err := q.Enqueue(j); err != nil {
				q.logger.Warn("failed to requeue job", zap.String("queue", q.name), zap.String("key", j.Key), zap.Error(err))
				q.keep(j)
			}
		}
	}(job)
}
