// Package generateimage provides the image generation node for workflow graph
// execution.
package generateimage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/generation"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/metrics"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

// Config defines the configuration for image generation nodes.
type Config struct {
	Model           string         `json:"model"`
	Prompt          string         `json:"prompt"`
	CharacterID     string         `json:"character_id,omitempty"`
	FaceLock        bool           `json:"face_lock"`
	FaceCharacterID string         `json:"face_character_id,omitempty"`
	FaceLockMode    string         `json:"face_lock_mode"`
	Width           int            `json:"width"`
	Height          int            `json:"height"`
	Count           int            `json:"count"`
	Params          map[string]any `json:"params,omitempty"`
}

// Node generates images through a model-specific provider, enriching the
// prompt with character context and face-lock reference images.
type Node struct {
	logger     *slog.Logger
	config     Config
	providers  *generation.ProviderSet
	ledger     protocol.CreditLedger
	characters protocol.CharacterStore
	library    protocol.ImageLibrary
}

// NewNode parses the raw configuration and builds an executor instance.
func NewNode(logger *slog.Logger, deps *Deps, config map[string]any) (*Node, error) {
	parsed := Config{
		FaceLockMode: "safe",
		Width:        1024,
		Height:       1024,
		Count:        1,
	}

	model, ok := config["model"].(string)
	if !ok || model == "" {
		return nil, errors.New("missing required field 'model'")
	}

	parsed.Model = model

	if prompt, ok := config["prompt"].(string); ok {
		parsed.Prompt = prompt
	}

	if characterID, ok := config["character_id"].(string); ok {
		parsed.CharacterID = characterID
	}

	if faceLock, ok := config["face_lock"].(bool); ok {
		parsed.FaceLock = faceLock
	}

	if faceCharacterID, ok := config["face_character_id"].(string); ok {
		parsed.FaceCharacterID = faceCharacterID
	}

	if mode, ok := config["face_lock_mode"].(string); ok && mode != "" {
		parsed.FaceLockMode = mode
	}

	if width, ok := config["width"].(float64); ok {
		parsed.Width = int(width)
	}

	if height, ok := config["height"].(float64); ok {
		parsed.Height = int(height)
	}

	if count, ok := config["count"].(float64); ok && count > 0 {
		parsed.Count = int(count)
	}

	if params, ok := config["params"].(map[string]any); ok {
		parsed.Params = params
	}

	return &Node{
		logger:     logger.With("module", "generate_image"),
		config:     parsed,
		providers:  deps.Providers,
		ledger:     deps.Ledger,
		characters: deps.Characters,
		library:    deps.Library,
	}, nil
}

// Execute runs one generation. Credit deduction and face-lock lookups are
// non-fatal: a ledger hiccup must not charge the user twice, and a missing
// reference image must not block generation.
func (n *Node) Execute(ctx context.Context, userID string, _ models.ExecutionContext) (*protocol.NodeResult, error) {
	if n.config.Prompt == "" {
		return nil, errors.New("missing required field 'prompt'")
	}

	provider, err := n.providers.Provider(n.config.Model)
	if err != nil {
		return nil, err
	}

	prompt := n.config.Prompt
	referenceImages := n.referenceImages(ctx, userID)

	if n.config.CharacterID != "" {
		character, err := n.characters.CharacterByID(ctx, userID, n.config.CharacterID)
		if err != nil {
			n.logger.WarnContext(ctx, "Failed to load character, generating without enrichment",
				"character_id", n.config.CharacterID, "error", err)
		} else {
			prompt = wrapPrompt(character, prompt)
		}
	}

	result, err := provider.Generate(ctx, &protocol.GenerationRequest{
		Prompt:          prompt,
		ReferenceImages: referenceImages,
		Width:           n.config.Width,
		Height:          n.config.Height,
		Count:           n.config.Count,
		Params:          n.config.Params,
	})
	if err != nil {
		return nil, fmt.Errorf("generation via %s failed: %w", provider.Name(), err)
	}

	if len(result.Images) == 0 && result.JobID == "" {
		return nil, fmt.Errorf("provider %s returned zero images", provider.Name())
	}

	creditsUsed := n.providers.CreditCost(n.config.Model) * n.config.Count

	if err := n.ledger.Deduct(ctx, userID, creditsUsed, "image generation: "+n.config.Model); err != nil {
		n.logger.ErrorContext(ctx, "Credit deduction failed, continuing",
			"user_id", userID, "amount", creditsUsed, "error", err)
	} else {
		metrics.CreditsSpent.WithLabelValues(models.NodeTypeGenerateImage).Add(float64(creditsUsed))
	}

	output := map[string]any{
		"image_urls": result.Images,
	}

	if len(result.Images) > 0 {
		output["image_url"] = result.Images[0]
	}

	if result.JobID != "" {
		output["job_id"] = result.JobID
		output["status"] = result.Status
	}

	return &protocol.NodeResult{Output: output, CreditsUsed: creditsUsed}, nil
}

// referenceImages resolves face-lock references, degrading to none on failure.
func (n *Node) referenceImages(ctx context.Context, userID string) []string {
	if !n.config.FaceLock {
		return nil
	}

	characterID := n.config.CharacterID
	if n.config.FaceCharacterID != "" {
		characterID = n.config.FaceCharacterID
	}

	if characterID == "" {
		return nil
	}

	images, err := n.library.FaceLockImages(ctx, userID, characterID, n.config.FaceLockMode)
	if err != nil {
		n.logger.WarnContext(ctx, "Face-lock lookup failed, generating without references",
			"character_id", characterID, "error", err)

		return nil
	}

	return images
}

func wrapPrompt(character *protocol.Character, prompt string) string {
	if character.PromptPrefix != "" {
		prompt = character.PromptPrefix + " " + prompt
	}

	if character.PromptSuffix != "" {
		prompt = prompt + " " + character.PromptSuffix
	}

	return prompt
}
