// Package gpu routes generation jobs between a dedicated GPU pod and a
// serverless queue, tracking LoRA affinity to avoid costly backend switches.
package gpu

import (
	"sync"
	"time"
)

// Endpoint identifies which backend a job was submitted to.
const (
	EndpointDedicated  = "dedicated"
	EndpointServerless = "serverless"
)

// RouterState tracks which character LoRA is believed to be loaded on the
// dedicated pod. It is best-effort, not a source of truth: the pod can be
// restarted externally at any time, so a stale read only risks an avoidable
// model-swap penalty, never a wrong answer. One instance is owned by one
// Router and shared across all routing calls.
type RouterState struct {
	mu          sync.Mutex
	currentLoRA string
	updatedAt   time.Time
}

func NewRouterState() *RouterState {
	return &RouterState{}
}

// CurrentLoRA returns the LoRA last known to be loaded, or "".
func (s *RouterState) CurrentLoRA() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.currentLoRA
}

// SetCurrentLoRA records a successful dedicated submission with the given LoRA.
func (s *RouterState) SetCurrentLoRA(lora string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentLoRA = lora
	s.updatedAt = time.Now()
}

// Reset clears the tracked LoRA. Call after a known pod restart.
func (s *RouterState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentLoRA = ""
	s.updatedAt = time.Time{}
}
