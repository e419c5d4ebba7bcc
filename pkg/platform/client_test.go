package platform

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

func TestBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/u1/credits", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{"balance": 42})
	}))
	defer server.Close()

	client := NewClient(slog.Default(), server.URL, "token")

	balance, err := client.Balance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 42, balance)
}

func TestDeduct(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/users/u1/credits/deduct", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(slog.Default(), server.URL, "")

	require.NoError(t, client.Deduct(context.Background(), "u1", 5, "generate-image"))
	assert.Equal(t, float64(5), received["amount"])
	assert.Equal(t, "generate-image", received["description"])
}

func TestCharacterByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/u1/characters/c1", r.URL.Path)

		_ = json.NewEncoder(w).Encode(protocol.Character{
			ID:         "c1",
			Name:       "Zoe",
			Appearance: "green eyes, auburn hair",
			LoRAName:   "Zoe_QWEN_v1.safetensors",
		})
	}))
	defer server.Close()

	client := NewClient(slog.Default(), server.URL, "")

	character, err := client.CharacterByID(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Zoe", character.Name)
	assert.Equal(t, "Zoe_QWEN_v1.safetensors", character.LoRAName)
}

func TestFaceLockRefs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/u1/characters/c1/face-lock", r.URL.Path)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"refs": []map[string]any{
				{"storage_key": "u1/refs/a.png", "mode": "safe", "position": 2},
				{"storage_key": "u1/refs/b.png", "mode": "", "position": 1},
			},
		})
	}))
	defer server.Close()

	client := NewClient(slog.Default(), server.URL, "")

	refs, err := client.FaceLockRefs(context.Background(), "u1", "c1")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "u1/refs/a.png", refs[0].StorageKey)
	assert.Equal(t, 2, refs[0].Position)
}

func TestErrorNormalization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(slog.Default(), server.URL, "")

	_, err := client.Balance(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
}
