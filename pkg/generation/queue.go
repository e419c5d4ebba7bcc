package generation

import (
	"context"
	"fmt"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/gpu"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

// PayloadBuilder translates the uniform generation request into the backend's
// native workflow payload. Model families that run on the GPU backends each
// carry their own template.
type PayloadBuilder func(req *protocol.GenerationRequest) map[string]any

// QueueProvider is the job-queue family: submission goes through the GPU
// router and returns a job id immediately. Completion is observed by the
// caller polling the status endpoint, never by this provider blocking.
type QueueProvider struct {
	name    string
	router  *gpu.Router
	payload PayloadBuilder
}

func NewQueueProvider(name string, router *gpu.Router, payload PayloadBuilder) *QueueProvider {
	return &QueueProvider{
		name:    name,
		router:  router,
		payload: payload,
	}
}

func (p *QueueProvider) Name() string {
	return p.name
}

func (p *QueueProvider) Generate(ctx context.Context, req *protocol.GenerationRequest) (*protocol.GenerationResult, error) {
	result := p.router.Submit(ctx, p.payload(req))
	if !result.Success {
		return nil, fmt.Errorf("generation submit via %s failed: %s", result.Endpoint, result.Error)
	}

	return &protocol.GenerationResult{
		JobID:  result.JobID,
		Status: result.Status,
	}, nil
}
