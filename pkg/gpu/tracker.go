package gpu

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	trackerEntryTTL   = time.Hour
	trackerSweepEvery = 5 * time.Minute
)

type trackedJob struct {
	endpoint  string
	trackedAt time.Time
}

// JobTracker remembers which backend each job was submitted to so that status
// polls can be routed to the right place. Entries expire after an hour; if a
// mapping is lost the caller degrades to a default backend guess, so nothing
// is persisted.
type JobTracker struct {
	logger *slog.Logger
	mu     sync.Mutex
	jobs   map[string]trackedJob
}

func NewJobTracker(logger *slog.Logger) *JobTracker {
	return &JobTracker{
		logger: logger.With("module", "job_tracker"),
		jobs:   make(map[string]trackedJob),
	}
}

// Track records the endpoint a job was submitted to.
func (t *JobTracker) Track(jobID, endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.jobs[jobID] = trackedJob{endpoint: endpoint, trackedAt: time.Now()}
}

// Endpoint returns the backend a job was submitted to, or "" when unknown.
func (t *JobTracker) Endpoint(jobID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[jobID]
	if !ok {
		return ""
	}

	return job.endpoint
}

// Start runs the periodic sweep until the context is cancelled.
func (t *JobTracker) Start(ctx context.Context) {
	ticker := time.NewTicker(trackerSweepEvery)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.sweep(time.Now())
			}
		}
	}()
}

// sweep evicts entries older than the TTL.
func (t *JobTracker) sweep(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0

	for jobID, job := range t.jobs {
		if now.Sub(job.trackedAt) > trackerEntryTTL {
			delete(t.jobs, jobID)

			evicted++
		}
	}

	if evicted > 0 {
		t.logger.Debug("Evicted expired job mappings", "count", evicted, "remaining", len(t.jobs))
	}
}

// Len returns the number of tracked jobs.
func (t *JobTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.jobs)
}
