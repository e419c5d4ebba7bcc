package gpu

import (
	"context"
	"log/slog"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/metrics"
)

// RouteResult reports where a job went and why.
type RouteResult struct {
	Success        bool   `json:"success"`
	JobID          string `json:"job_id,omitempty"`
	Status         string `json:"status,omitempty"`
	Endpoint       string `json:"endpoint"`
	Error          string `json:"error,omitempty"`
	UsedFallback   bool   `json:"used_fallback,omitempty"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	LoRARouted     bool   `json:"lora_routed,omitempty"`
	RoutingReason  string `json:"routing_reason,omitempty"`
}

// StatusResult is the outcome of a job status poll.
type StatusResult struct {
	Success  bool           `json:"success"`
	Data     map[string]any `json:"data,omitempty"`
	Endpoint string         `json:"endpoint"`
	Error    string         `json:"error,omitempty"`
}

// BackendFactory builds a client for the dedicated pod at the configured URL.
// The URL comes from the settings source and can change between calls.
type BackendFactory func(settings RoutingSettings) Backend

// Router submits generation jobs to the backend the active policy selects.
// It never retries inside itself; transport failures are either absorbed by a
// fallback policy or surfaced as the submission failure.
type Router struct {
	logger     *slog.Logger
	settings   SettingsSource
	serverless Backend
	dedicated  BackendFactory
	state      *RouterState
	tracker    *JobTracker
}

func NewRouter(logger *slog.Logger, settings SettingsSource, serverless Backend, dedicated BackendFactory, state *RouterState, tracker *JobTracker) *Router {
	return &Router{
		logger:     logger.With("module", "gpu_router"),
		settings:   settings,
		serverless: serverless,
		dedicated:  dedicated,
		state:      state,
		tracker:    tracker,
	}
}

// State exposes the affinity state for pod-restart recovery.
func (r *Router) State() *RouterState {
	return r.state
}

// Settings returns the active routing policy.
func (r *Router) Settings(ctx context.Context) RoutingSettings {
	return r.settings.Current(ctx)
}

// Submit routes one generation payload according to the active policy.
func (r *Router) Submit(ctx context.Context, payload map[string]any) *RouteResult {
	settings := r.settings.Current(ctx)

	mode := settings.Mode
	if settings.DedicatedURL == "" {
		// Without a dedicated pod there is only one place to go.
		mode = ModeServerless
	}

	switch mode {
	case ModeDedicated:
		return r.submitDedicated(ctx, settings, payload)
	case ModeHybrid:
		return r.submitHybrid(ctx, settings, payload)
	case ModeServerlessPrimary:
		return r.submitServerlessPrimary(ctx, settings, payload)
	case ModeServerless:
		return r.submitServerless(ctx, payload, false, "")
	default:
		// Fail open to the known-reliable path.
		r.logger.WarnContext(ctx, "Unrecognized routing mode, using serverless", "mode", mode)

		return r.submitServerless(ctx, payload, false, "")
	}
}

// submitHybrid prefers the dedicated pod behind two guards: a bounded health
// probe, then LoRA affinity. A mismatch between the requested character LoRA
// and the one loaded on the pod costs roughly 35 seconds of model swapping,
// so mismatched requests go to serverless instead.
func (r *Router) submitHybrid(ctx context.Context, settings RoutingSettings, payload map[string]any) *RouteResult {
	dedicated := r.dedicated(settings)

	if err := dedicated.Health(ctx); err != nil {
		r.logger.WarnContext(ctx, "Dedicated backend unhealthy, falling back", "error", err)
		metrics.RouterFallbacks.WithLabelValues("health").Inc()

		return r.submitServerless(ctx, payload, true, err.Error())
	}

	requested := ExtractCharacterLoRA(payload)

	if requested != "" {
		current := r.state.CurrentLoRA()
		if current != "" && current != requested {
			r.logger.InfoContext(ctx, "LoRA affinity mismatch, routing to serverless",
				"requested", requested, "loaded", current)
			metrics.RouterLoRAReroutes.Inc()

			result := r.submitServerless(ctx, payload, false, "")
			result.LoRARouted = true
			result.RoutingReason = "dedicated pod has " + current + " loaded, request needs " + requested

			return result
		}
	}

	result := r.trySubmit(ctx, dedicated, EndpointDedicated, payload)
	if !result.Success {
		metrics.RouterFallbacks.WithLabelValues("submit").Inc()

		return r.submitServerless(ctx, payload, true, result.Error)
	}

	if requested != "" {
		r.state.SetCurrentLoRA(requested)
	}

	return result
}

// submitServerlessPrimary tries the queue first and the dedicated pod only as
// a fallback, and only when one is configured.
func (r *Router) submitServerlessPrimary(ctx context.Context, settings RoutingSettings, payload map[string]any) *RouteResult {
	result := r.trySubmit(ctx, r.serverless, EndpointServerless, payload)
	if result.Success || settings.DedicatedURL == "" {
		return result
	}

	metrics.RouterFallbacks.WithLabelValues("serverless").Inc()

	fallback := r.trySubmit(ctx, r.dedicated(settings), EndpointDedicated, payload)
	fallback.UsedFallback = true
	fallback.FallbackReason = result.Error

	if fallback.Success {
		if requested := ExtractCharacterLoRA(payload); requested != "" {
			r.state.SetCurrentLoRA(requested)
		}
	}

	return fallback
}

// submitDedicated submits with no fallback; a backend failure is the caller's.
func (r *Router) submitDedicated(ctx context.Context, settings RoutingSettings, payload map[string]any) *RouteResult {
	result := r.trySubmit(ctx, r.dedicated(settings), EndpointDedicated, payload)
	if result.Success {
		if requested := ExtractCharacterLoRA(payload); requested != "" {
			r.state.SetCurrentLoRA(requested)
		}
	}

	return result
}

func (r *Router) submitServerless(ctx context.Context, payload map[string]any, usedFallback bool, fallbackReason string) *RouteResult {
	result := r.trySubmit(ctx, r.serverless, EndpointServerless, payload)
	result.UsedFallback = usedFallback
	result.FallbackReason = fallbackReason

	return result
}

func (r *Router) trySubmit(ctx context.Context, backend Backend, endpoint string, payload map[string]any) *RouteResult {
	response, err := backend.Submit(ctx, payload)
	if err != nil {
		metrics.RouterSubmissions.WithLabelValues(endpoint, "error").Inc()

		return &RouteResult{Endpoint: endpoint, Error: err.Error()}
	}

	r.tracker.Track(response.ID, endpoint)
	metrics.RouterSubmissions.WithLabelValues(endpoint, "ok").Inc()

	r.logger.InfoContext(ctx, "Job submitted", "job_id", response.ID, "endpoint", endpoint)

	return &RouteResult{
		Success:  true,
		JobID:    response.ID,
		Status:   response.Status,
		Endpoint: endpoint,
	}
}

// JobStatus polls the backend a job was submitted to. An unknown job defaults
// to the serverless queue, where status is always re-derivable.
func (r *Router) JobStatus(ctx context.Context, jobID string) *StatusResult {
	endpoint := r.tracker.Endpoint(jobID)
	if endpoint == "" {
		endpoint = EndpointServerless
	}

	backend := r.serverless

	if endpoint == EndpointDedicated {
		settings := r.settings.Current(ctx)
		if settings.DedicatedURL == "" {
			return &StatusResult{Endpoint: endpoint, Error: "dedicated backend not configured"}
		}

		backend = r.dedicated(settings)
	}

	data, err := backend.Status(ctx, jobID)
	if err != nil {
		return &StatusResult{Endpoint: endpoint, Error: err.Error()}
	}

	return &StatusResult{Success: true, Data: data, Endpoint: endpoint}
}
