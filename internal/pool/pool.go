package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/s3types"
)

// DefaultCapacity is the admission capacity used when none is given.
const DefaultCapacity = 100

// Func performs one task. The context it receives is detached from
// cancellation: once admitted, a task runs to completion or failure.
type Func func(ctx context.Context) error

// Pool is an admission-controlled task pool. A Pool is meant for a single
// batch: Submit from one goroutine, then Drain, then Close.
type Pool struct {
	capacity int
	backend  s3types.PoolBackend
	logger   *slog.Logger
	limiter  *rate.Limiter

	sem     *semaphore.Weighted
	workers *ants.Pool

	wg        sync.WaitGroup
	completed atomic.Int64
	inFlight  atomic.Int64
	highWater atomic.Int64
	submitted atomic.Int64

	mu       sync.Mutex
	outcomes []s3types.Outcome
	closed   bool
}

// Stats is a snapshot of pool activity.
type Stats struct {
	Capacity  int
	InFlight  int64
	HighWater int64
	Submitted int64
	Completed int64
}

// New creates a pool that admits at most capacity concurrent tasks.
// A non-positive capacity means DefaultCapacity.
func New(capacity int, opts ...Option) (*Pool, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	p := &Pool{
		capacity: capacity,
		backend:  s3types.PoolBackendSemaphore,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.sem = semaphore.NewWeighted(int64(capacity))
	switch p.backend {
	case s3types.PoolBackendSemaphore:
	case s3types.PoolBackendWorkers:
		workers, err := ants.NewPool(capacity, ants.WithNonblocking(false))
		if err != nil {
			return nil, errors.NewKindError("newPool", errors.KindConfig, err)
		}
		p.workers = workers
	default:
		return nil, errors.NewKindError("newPool", errors.KindConfig, errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("unknown pool backend %q", p.backend))
	}

	return p, nil
}

// Capacity returns the admission capacity.
func (p *Pool) Capacity() int {
	return p.capacity
}

// Submit waits for a permit, starts fn and returns its handle.
//
// Submit only fails when ctx ends while waiting for admission (or for the
// rate limiter), or when the pool is closed. Admission goes through the
// same permit on both backends; the workers backend only changes which
// goroutines run admitted tasks. A task that fails to be admitted is
// neither started nor counted.
func (p *Pool) Submit(ctx context.Context, task s3types.TransferTask, fn Func) (*Handle, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, errors.NewError("submit", errors.ErrPoolClosed).WithBucket(task.Bucket).WithKey(task.Key)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, errors.NewError("submit", err).
				WithBucket(task.Bucket).
				WithKey(task.Key).
				WithMessage("waiting for rate limiter")
		}
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.NewError("submit", err).
			WithBucket(task.Bucket).
			WithKey(task.Key).
			WithMessage("waiting for admission")
	}

	h := newHandle(task)
	taskCtx := context.WithoutCancel(ctx)
	release := func() { p.sem.Release(1) }

	p.wg.Add(1)
	p.submitted.Add(1)
	if p.workers == nil {
		go p.run(taskCtx, h, fn, release)
		return h, nil
	}

	// the permit bounds running tasks to the worker count, so a worker is
	// free or about to be
	if err := p.workers.Submit(func() { p.run(taskCtx, h, fn, release) }); err != nil {
		release()
		p.submitted.Add(-1)
		p.wg.Done()
		return nil, errors.NewError("submit", err).WithBucket(task.Bucket).WithKey(task.Key)
	}

	return h, nil
}

// run executes fn and performs the continuation: the permit is released,
// the completion counter is bumped and the outcome is recorded, in that
// order, exactly once.
func (p *Pool) run(ctx context.Context, h *Handle, fn Func, release func()) {
	start := time.Now()
	p.observe(p.inFlight.Add(1))

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}

		p.inFlight.Add(-1)
		release()
		n := p.completed.Add(1)

		outcome := s3types.Outcome{Task: h.task, Err: err, Duration: time.Since(start)}
		p.mu.Lock()
		p.outcomes = append(p.outcomes, outcome)
		p.mu.Unlock()

		if err != nil {
			p.logger.Warn("task failed",
				"direction", h.task.Direction,
				"bucket", h.task.Bucket,
				"key", h.task.Key,
				"error", err)
		} else {
			p.logger.Debug("task completed",
				"direction", h.task.Direction,
				"bucket", h.task.Bucket,
				"key", h.task.Key,
				"duration", outcome.Duration,
				"completed", n)
		}

		h.finish(outcome)
		p.wg.Done()
	}()

	err = fn(ctx)
}

// observe raises the high-water mark to n if needed.
func (p *Pool) observe(n int64) {
	for {
		cur := p.highWater.Load()
		if n <= cur || p.highWater.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Drain waits for every started task to finish and returns their outcomes
// in completion order.
func (p *Pool) Drain() []s3types.Outcome {
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]s3types.Outcome, len(p.outcomes))
	copy(out, p.outcomes)
	return out
}

// Completed returns the number of finished tasks.
func (p *Pool) Completed() int64 {
	return p.completed.Load()
}

// Stats returns a snapshot of pool activity.
func (p *Pool) Stats() Stats {
	return Stats{
		Capacity:  p.capacity,
		InFlight:  p.inFlight.Load(),
		HighWater: p.highWater.Load(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
	}
}

// Close drains the pool and releases backend resources.
// Submitting after Close fails with ErrPoolClosed.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	if p.workers != nil {
		p.workers.Release()
	}
}
