package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HTTPTextProvider talks to a chat-completions endpoint for prompt batches.
type HTTPTextProvider struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

func NewHTTPTextProvider(url, apiKey, model string) *HTTPTextProvider {
	return &HTTPTextProvider{
		url:    url,
		apiKey: apiKey,
		model:  model,
		client: &http.Client{},
	}
}

// Complete sends a system and user message pair and returns the model's text.
func (p *HTTPTextProvider) Complete(ctx context.Context, system, user string) (string, error) {
	payload := map[string]any{
		"model": p.model,
		"messages": []map[string]any{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}

	body, err := postJSON(ctx, p.client, p.url, p.apiKey, payload)
	if err != nil {
		return "", err
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("malformed completion response: %w", err)
	}

	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("completion response carries no content")
	}

	return response.Choices[0].Message.Content, nil
}
