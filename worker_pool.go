// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package outlinks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// WorkerPool manages a fixed number of worker goroutines that process work items from a queue.
type WorkerPool struct {
	maxWorkers int
	workQueue  chan func()
	wg         *sync.WaitGroup
	ctx        context.Context
}

// NewWorkerPool starts maxWorkers goroutines. With queueSize 0, Submit
// hands work directly to an idle worker and blocks until one is free.
func NewWorkerPool(ctx context.Context, maxWorkers int, queueSize int) *WorkerPool {
	wp := &WorkerPool{
		maxWorkers: maxWorkers,
		workQueue:  make(chan func(), queueSize),
		wg:         &sync.WaitGroup{},
		ctx:        ctx,
	}

	for i := 0; i < maxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}

	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case work, ok := <-wp.workQueue:
			if !ok {
				return
			}
			work()

		case <-wp.ctx.Done():
			return
		}
	}
}

// Submit blocks until a worker accepts work or the context is cancelled.
func (wp *WorkerPool) Submit(work func()) error {
	if err := wp.ctx.Err(); err != nil {
		return err
	}
	select {
	case wp.workQueue <- work:
		return nil

	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Close closes the queue and waits for running work to finish.
func (wp *WorkerPool) Close() {
	close(wp.workQueue)
	wp.wg.Wait()
}

// Operation processes one work item. The context carries the per-attempt
// timeout.
type Operation func(ctx context.Context, item string) (any, error)

// Result is the outcome of one item after all attempts.
type Result struct {
	Item     string
	Payload  any
	Err      error
	Attempts int
}

// OK reports whether the item eventually succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Controller runs operations over a set of items with a hard concurrency
// ceiling, per-attempt timeouts and retry with backoff. One Run at a time.
type Controller struct {
	limit   int
	policy  RetryPolicy
	logger  *zap.Logger
	metrics Metrics

	inFlight  atomic.Int64
	peak      atomic.Int64
	completed atomic.Int64
	total     atomic.Int64
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithControllerLogger sets the logger used for retry and failure messages.
func WithControllerLogger(l *zap.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// WithControllerMetrics reports in-flight counts and retries to m.
func WithControllerMetrics(m Metrics) ControllerOption {
	return func(c *Controller) { c.metrics = m }
}

// NewController returns a Controller that never runs more than limit
// operations at once.
func NewController(limit int, policy RetryPolicy, opts ...ControllerOption) (*Controller, error) {
	if limit < MinConcurrency || limit > MaxConcurrency {
		return nil, fmt.Errorf("%w: concurrency %d outside %d..%d", ErrInvalidSettings, limit, MinConcurrency, MaxConcurrency)
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	c := &Controller{
		limit:   limit,
		policy:  policy,
		logger:  zap.NewNop(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run dispatches op over items and streams one Result per dispatched item.
// The channel is closed when every dispatched item has finished. Items not
// yet dispatched when ctx is cancelled produce no Result.
func (c *Controller) Run(ctx context.Context, items []string, op Operation) <-chan Result {
	results := make(chan Result, c.limit)
	c.total.Store(int64(len(items)))
	c.completed.Store(0)

	workers := c.limit
	if len(items) < workers {
		workers = len(items)
	}

	go func() {
		defer close(results)
		if workers == 0 {
			return
		}
		pool := NewWorkerPool(ctx, workers, 0)
		for _, item := range items {
			err := pool.Submit(func() {
				res := c.execute(ctx, item, op)
				c.completed.Add(1)
				results <- res
			})
			if err != nil {
				c.logger.Debug("dispatch stopped", zap.Error(err), zap.Int64("completed", c.completed.Load()))
				break
			}
		}
		pool.Close()
	}()

	return results
}

// execute runs op for item until it succeeds, fails permanently or runs
// out of attempts.
func (c *Controller) execute(ctx context.Context, item string, op Operation) Result {
	res := Result{Item: item}
	for attempt := 1; ; attempt++ {
		res.Attempts = attempt
		payload, err := c.attempt(ctx, item, op)
		if err == nil {
			res.Payload = payload
			res.Err = nil
			return res
		}
		res.Err = err

		if ctx.Err() != nil || !c.policy.ShouldRetry(attempt, err) {
			if attempt > 1 || IsTransient(err) {
				c.logger.Debug("giving up on item",
					zap.String("item", item),
					zap.Int("attempts", attempt),
					zap.Error(err))
			}
			return res
		}

		delay := c.policy.Backoff(attempt)
		c.metrics.IncRetry()
		c.logger.Debug("retrying after backoff",
			zap.String("item", item),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return res
		case <-timer.C:
		}
	}
}

func (c *Controller) attempt(ctx context.Context, item string, op Operation) (any, error) {
	n := c.inFlight.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	c.metrics.SetInFlight(int(n))
	defer func() {
		c.metrics.SetInFlight(int(c.inFlight.Add(-1)))
	}()

	if c.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.AttemptTimeout)
		defer cancel()
	}
	return op(ctx, item)
}

// Limit returns the concurrency ceiling.
func (c *Controller) Limit() int { return c.limit }

// InFlight returns the number of operations executing right now.
func (c *Controller) InFlight() int { return int(c.inFlight.Load()) }

// PeakInFlight returns the highest in-flight count observed.
func (c *Controller) PeakInFlight() int { return int(c.peak.Load()) }

// Completed returns the number of items finished in the current Run.
func (c *Controller) Completed() int { return int(c.completed.Load()) }

// Total returns the number of items submitted to the current Run.
func (c *Controller) Total() int { return int(c.total.Load()) }
