// Package platform is the HTTP client for the user platform API: credit
// ledger, character profiles, face-lock references and gallery records.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/gallery"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

const requestTimeout = 10 * time.Second

// Client talks to the platform API with a service token. It implements the
// CreditLedger and CharacterStore collaborators plus the gallery ref/record
// stores.
type Client struct {
	logger  *slog.Logger
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(logger *slog.Logger, baseURL, apiKey string) *Client {
	return &Client{
		logger:  logger.With("module", "platform"),
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// Balance returns the user's current credit balance.
func (c *Client) Balance(ctx context.Context, userID string) (int, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/users/"+userID+"/credits", nil)
	if err != nil {
		return 0, err
	}

	var response struct {
		Balance int `json:"balance"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return 0, fmt.Errorf("malformed balance response: %w", err)
	}

	return response.Balance, nil
}

// Deduct removes credits from the user's balance.
func (c *Client) Deduct(ctx context.Context, userID string, amount int, description string) error {
	payload := map[string]any{
		"amount":      amount,
		"description": description,
	}

	_, err := c.do(ctx, http.MethodPost, "/api/users/"+userID+"/credits/deduct", payload)

	return err
}

// CharacterByID fetches one character profile.
func (c *Client) CharacterByID(ctx context.Context, userID, characterID string) (*protocol.Character, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/users/"+userID+"/characters/"+characterID, nil)
	if err != nil {
		return nil, err
	}

	var character protocol.Character

	if err := json.Unmarshal(body, &character); err != nil {
		return nil, fmt.Errorf("malformed character response: %w", err)
	}

	return &character, nil
}

// FaceLockRefs lists a character's stored face-lock reference images.
func (c *Client) FaceLockRefs(ctx context.Context, userID, characterID string) ([]gallery.FaceLockRef, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/users/"+userID+"/characters/"+characterID+"/face-lock", nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Refs []struct {
			StorageKey string `json:"storage_key"`
			Mode       string `json:"mode"`
			Position   int    `json:"position"`
		} `json:"refs"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("malformed face-lock response: %w", err)
	}

	refs := make([]gallery.FaceLockRef, 0, len(response.Refs))
	for _, ref := range response.Refs {
		refs = append(refs, gallery.FaceLockRef{
			StorageKey: ref.StorageKey,
			Mode:       ref.Mode,
			Position:   ref.Position,
		})
	}

	return refs, nil
}

// SaveRecord creates a gallery record for a saved image.
func (c *Client) SaveRecord(ctx context.Context, record *protocol.GalleryRecord) error {
	_, err := c.do(ctx, http.MethodPost, "/api/gallery/records", record)

	return err
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader

	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}

		reader = bytes.NewReader(encoded)
	}

	url := c.baseURL + path

	request, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	response, err := c.client.Do(request)
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
