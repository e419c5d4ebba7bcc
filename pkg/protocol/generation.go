package protocol

import "context"

// GenerationRequest is the uniform payload handed to an image provider.
// Provider families translate it into their own wire shapes.
type GenerationRequest struct {
	Prompt          string
	ReferenceImages []string
	Width           int
	Height          int
	Count           int
	Params          map[string]any
}

// GenerationResult carries either immediate image URLs/data-URIs (synchronous
// families) or a job id to be polled by the caller (queue families).
type GenerationResult struct {
	Images []string
	JobID  string
	Status string
}

// ImageProvider is the generation collaborator behind a uniform contract.
// Three families exist: multimodal chat-style (inline base64 extraction),
// job-queue style (submit then poll), and synchronous direct-model-call style.
type ImageProvider interface {
	Name() string
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)
}

// TextProvider is the text-generation collaborator used for prompt batches.
type TextProvider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
