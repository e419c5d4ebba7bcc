// Package generation implements the image and text provider families the node
// executors dispatch to. Three image families exist with different wire
// shapes: multimodal chat-style, synchronous direct-call style, and job-queue
// style backed by the GPU router.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// postJSON performs one JSON POST, normalizing transport errors and non-2xx
// responses into errors carrying the upstream status.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")

	if apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+apiKey)
	}

	response, err := client.Do(request)
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
