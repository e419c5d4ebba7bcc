package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

// DirectProvider is the synchronous direct-model-call family: one POST with
// the uniform request shape, image URLs in the response.
type DirectProvider struct {
	name   string
	url    string
	apiKey string
	client *http.Client
}

func NewDirectProvider(name, url, apiKey string) *DirectProvider {
	return &DirectProvider{
		name:   name,
		url:    url,
		apiKey: apiKey,
		client: &http.Client{},
	}
}

func (p *DirectProvider) Name() string {
	return p.name
}

func (p *DirectProvider) Generate(ctx context.Context, req *protocol.GenerationRequest) (*protocol.GenerationResult, error) {
	parameters := map[string]any{
		"width":  req.Width,
		"height": req.Height,
		"count":  req.Count,
	}

	for key, value := range req.Params {
		parameters[key] = value
	}

	payload := map[string]any{
		"prompt":          req.Prompt,
		"referenceImages": req.ReferenceImages,
		"modelParameters": parameters,
	}

	body, err := postJSON(ctx, p.client, p.url, p.apiKey, payload)
	if err != nil {
		return nil, err
	}

	var response struct {
		Images []string `json:"images"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("malformed generation response: %w", err)
	}

	if len(response.Images) == 0 {
		return nil, fmt.Errorf("generation response from %s carries no images", p.name)
	}

	return &protocol.GenerationResult{Images: response.Images, Status: "completed"}, nil
}
