package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

// ChatProvider is the multimodal chat-style family: the model is addressed
// through a chat-completions endpoint and returns generated images inline in
// the message structure, as data URIs or nested image_url objects.
type ChatProvider struct {
	name   string
	url    string
	apiKey string
	model  string
	client *http.Client
}

func NewChatProvider(name, url, apiKey, model string) *ChatProvider {
	return &ChatProvider{
		name:   name,
		url:    url,
		apiKey: apiKey,
		model:  model,
		client: &http.Client{},
	}
}

func (p *ChatProvider) Name() string {
	return p.name
}

func (p *ChatProvider) Generate(ctx context.Context, req *protocol.GenerationRequest) (*protocol.GenerationResult, error) {
	content := []map[string]any{
		{"type": "text", "text": req.Prompt},
	}

	for _, ref := range req.ReferenceImages {
		content = append(content, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": ref},
		})
	}

	payload := map[string]any{
		"model": p.model,
		"messages": []map[string]any{
			{"role": "user", "content": content},
		},
		"modalities": []string{"image", "text"},
	}

	if req.Count > 1 {
		payload["n"] = req.Count
	}

	body, err := postJSON(ctx, p.client, p.url, p.apiKey, payload)
	if err != nil {
		return nil, err
	}

	var response chatResponse

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("malformed chat response: %w", err)
	}

	images := response.images()
	if len(images) == 0 {
		return nil, fmt.Errorf("chat response from %s carries no images", p.name)
	}

	return &protocol.GenerationResult{Images: images, Status: "completed"}, nil
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
			Images  []chatImage     `json:"images"`
		} `json:"message"`
	} `json:"choices"`
}

type chatImage struct {
	Type     string `json:"type"`
	ImageURL struct {
		URL string `json:"url"`
	} `json:"image_url"`
}

// images walks the nested message structure and collects every image it can
// find: the dedicated images array first, then image_url parts of a structured
// content array, then a bare data-URI content string.
func (r *chatResponse) images() []string {
	var out []string

	for _, choice := range r.Choices {
		for _, image := range choice.Message.Images {
			if image.ImageURL.URL != "" {
				out = append(out, image.ImageURL.URL)
			}
		}

		if len(choice.Message.Content) == 0 {
			continue
		}

		var parts []chatImage
		if err := json.Unmarshal(choice.Message.Content, &parts); err == nil {
			for _, part := range parts {
				if part.Type == "image_url" && part.ImageURL.URL != "" {
					out = append(out, part.ImageURL.URL)
				}
			}

			continue
		}

		var text string
		if err := json.Unmarshal(choice.Message.Content, &text); err == nil {
			if strings.HasPrefix(text, "data:image/") {
				out = append(out, text)
			}
		}
	}

	return out
}
