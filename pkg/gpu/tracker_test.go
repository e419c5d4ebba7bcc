package gpu

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobTrackerTrackAndLookup(t *testing.T) {
	tracker := NewJobTracker(slog.Default())

	tracker.Track("job-1", EndpointDedicated)
	tracker.Track("job-2", EndpointServerless)

	assert.Equal(t, EndpointDedicated, tracker.Endpoint("job-1"))
	assert.Equal(t, EndpointServerless, tracker.Endpoint("job-2"))
	assert.Equal(t, "", tracker.Endpoint("job-3"))
	assert.Equal(t, 2, tracker.Len())
}

func TestJobTrackerRetrack(t *testing.T) {
	tracker := NewJobTracker(slog.Default())

	tracker.Track("job-1", EndpointDedicated)
	tracker.Track("job-1", EndpointServerless)

	assert.Equal(t, EndpointServerless, tracker.Endpoint("job-1"))
	assert.Equal(t, 1, tracker.Len())
}

func TestJobTrackerSweepEvictsExpired(t *testing.T) {
	tracker := NewJobTracker(slog.Default())

	tracker.Track("old", EndpointDedicated)
	tracker.Track("fresh", EndpointServerless)

	tracker.mu.Lock()
	job := tracker.jobs["old"]
	job.trackedAt = time.Now().Add(-2 * time.Hour)
	tracker.jobs["old"] = job
	tracker.mu.Unlock()

	tracker.sweep(time.Now())

	assert.Equal(t, "", tracker.Endpoint("old"))
	assert.Equal(t, EndpointServerless, tracker.Endpoint("fresh"))
	assert.Equal(t, 1, tracker.Len())
}

func TestRouterStateReset(t *testing.T) {
	state := NewRouterState()

	state.SetCurrentLoRA("zoe_v2.safetensors")
	assert.Equal(t, "zoe_v2.safetensors", state.CurrentLoRA())

	state.Reset()
	assert.Equal(t, "", state.CurrentLoRA())
}
