// Package scheduler polls for due schedules and fires workflow executions
// through a bounded worker pool.
package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/metrics"
)

const defaultPoolSize = 4

// WorkerPool runs fired executions on a fixed number of workers so a burst of
// due schedules cannot spawn unbounded goroutines.
type WorkerPool struct {
	logger *slog.Logger
	jobs   chan func(ctx context.Context)
	wg     sync.WaitGroup
}

func NewWorkerPool(logger *slog.Logger, size int) *WorkerPool {
	if size <= 0 {
		size = defaultPoolSize
	}

	return &WorkerPool{
		logger: logger.With("module", "worker_pool"),
		jobs:   make(chan func(ctx context.Context), size*4),
	}
}

// Start launches the workers. They drain the queue until the context is
// cancelled.
func (p *WorkerPool) Start(ctx context.Context, size int) {
	if size <= 0 {
		size = defaultPoolSize
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)

		go func() {
			defer p.wg.Done()

			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}

					metrics.SchedulerQueueDepth.Dec()
					job(ctx)
				}
			}
		}()
	}
}

// Submit enqueues one job. It reports false when the queue is full, leaving
// the schedule to fire again on its next due time instead of blocking the
// trigger loop.
func (p *WorkerPool) Submit(job func(ctx context.Context)) bool {
	select {
	case p.jobs <- job:
		metrics.SchedulerQueueDepth.Inc()

		return true
	default:
		p.logger.Warn("Worker pool queue full, dropping job")

		return false
	}
}

// Wait blocks until all workers have exited.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
