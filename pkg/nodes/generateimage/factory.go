// Package generateimage provides the image generation node factory for the
// registry system.
package generateimage

import (
	"context"
	"log/slog"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/generation"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

// Deps are the collaborators every image generation node needs.
type Deps struct {
	Providers  *generation.ProviderSet
	Ledger     protocol.CreditLedger
	Characters protocol.CharacterStore
	Library    protocol.ImageLibrary
}

// Factory creates image generation node instances.
type Factory struct {
	logger *slog.Logger
	deps   *Deps
}

func NewFactory(logger *slog.Logger, deps *Deps) protocol.NodeFactory {
	return &Factory{logger: logger, deps: deps}
}

func (f *Factory) Create(_ context.Context, config map[string]any) (protocol.NodeExecutor, error) {
	return NewNode(f.logger, f.deps, config)
}

func (f *Factory) ID() string {
	return models.NodeTypeGenerateImage
}

func (f *Factory) Name() string {
	return "Generate Image"
}

func (f *Factory) Description() string {
	return "Generates images through a model-specific provider with optional character prompt enrichment and face-lock reference images"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"model": map[string]any{
				"type":        "string",
				"description": "Model selector, one of the registered image backends",
			},
			"prompt": map[string]any{
				"type":        "string",
				"description": "Prompt text. Supports wiring from upstream nodes with {{nodeId.field}} tokens",
				"examples":    []string{"a portrait at golden hour", "{{prompts_node.prompts.0}}"},
			},
			"character_id": map[string]any{
				"type":        "string",
				"description": "Character whose prefix/suffix wrap the prompt",
			},
			"face_lock": map[string]any{
				"type":        "boolean",
				"description": "Attach the character's reference images to the request",
				"default":     false,
			},
			"face_character_id": map[string]any{
				"type":        "string",
				"description": "Use a different character's reference images",
			},
			"face_lock_mode": map[string]any{
				"type":    "string",
				"enum":    []string{"safe", "explicit"},
				"default": "safe",
			},
			"width":  map[string]any{"type": "number", "default": 1024},
			"height": map[string]any{"type": "number", "default": 1024},
			"count": map[string]any{
				"type":        "number",
				"description": "Number of images to generate",
				"default":     1,
				"minimum":     1,
				"maximum":     8,
			},
			"params": map[string]any{
				"type":        "object",
				"description": "Extra model-specific parameters passed through to the provider",
			},
		},
		"required": []string{"model"},
	}
}

func (f *Factory) CompanionFields() map[string]string {
	return map[string]string{"image_url": "image_urls"}
}

// EstimateCredits returns per-image cost times output count from the raw
// configuration, before any wiring has resolved tokens.
func (f *Factory) EstimateCredits(config map[string]any) int {
	model, _ := config["model"].(string)

	count := 1
	if raw, ok := config["count"].(float64); ok && raw > 0 {
		count = int(raw)
	}

	return f.deps.Providers.CreditCost(model) * count
}
