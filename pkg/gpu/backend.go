package gpu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const healthTimeout = 3 * time.Second

// SubmitResponse is a backend's acknowledgement of a submitted job.
type SubmitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Backend is one generation compute target. Both the dedicated pod and the
// serverless queue expose the same surface: GET /health, POST /run and
// GET /status/{id}.
type Backend interface {
	Health(ctx context.Context) error
	Submit(ctx context.Context, payload map[string]any) (*SubmitResponse, error)
	Status(ctx context.Context, jobID string) (map[string]any, error)
}

// HTTPBackend talks to a backend over HTTP. The serverless queue is bearer
// token authenticated; the dedicated pod relies on internal-network trust and
// carries no credentials.
type HTTPBackend struct {
	baseURL       string
	bearerToken   string
	submitTimeout time.Duration
	client        *http.Client
}

// NewHTTPBackend creates a backend client. An empty bearerToken sends no
// Authorization header.
func NewHTTPBackend(baseURL, bearerToken string, submitTimeout time.Duration) *HTTPBackend {
	if submitTimeout <= 0 {
		submitTimeout = defaultSubmitTimeout
	}

	return &HTTPBackend{
		baseURL:       baseURL,
		bearerToken:   bearerToken,
		submitTimeout: submitTimeout,
		client:        &http.Client{},
	}
}

// Health probes the backend within a bounded timeout.
func (b *HTTPBackend) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	body, err := b.do(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	var health struct {
		Status string `json:"status"`
	}

	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("malformed health response: %w", err)
	}

	if health.Status != "" && health.Status != "healthy" && health.Status != "ok" {
		return fmt.Errorf("backend reports status %q", health.Status)
	}

	return nil
}

// Submit posts a job and returns the backend's job id.
func (b *HTTPBackend) Submit(ctx context.Context, payload map[string]any) (*SubmitResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, b.submitTimeout)
	defer cancel()

	request := map[string]any{
		"input": map[string]any{"workflow": payload},
	}

	body, err := b.do(ctx, http.MethodPost, b.baseURL+"/run", request)
	if err != nil {
		return nil, err
	}

	var response SubmitResponse

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("malformed submit response: %w", err)
	}

	if response.ID == "" {
		return nil, fmt.Errorf("submit response carries no job id")
	}

	return &response, nil
}

// Status fetches the provider-defined status document for a job.
func (b *HTTPBackend) Status(ctx context.Context, jobID string) (map[string]any, error) {
	body, err := b.do(ctx, http.MethodGet, b.baseURL+"/status/"+jobID, nil)
	if err != nil {
		return nil, err
	}

	var status map[string]any

	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("malformed status response: %w", err)
	}

	return status, nil
}

// do performs one request, normalizing transport errors and non-2xx responses.
func (b *HTTPBackend) do(ctx context.Context, method, url string, payload any) ([]byte, error) {
	var reader io.Reader

	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}

		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")

	if b.bearerToken != "" {
		request.Header.Set("Authorization", "Bearer "+b.bearerToken)
	}

	response, err := b.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d from %s", response.StatusCode, url)
	}

	return body, nil
}
