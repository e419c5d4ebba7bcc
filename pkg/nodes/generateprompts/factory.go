// Package generateprompts provides the prompt batch node factory for the
// registry system.
package generateprompts

import (
	"context"
	"log/slog"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

// Deps are the collaborators every prompt generation node needs.
type Deps struct {
	Text       protocol.TextProvider
	Ledger     protocol.CreditLedger
	Characters protocol.CharacterStore
}

// Factory creates prompt generation node instances.
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
	return models.NodeTypeGeneratePrompts
}

func (f *Factory) Name() string {
	return "Generate Prompts"
}

func (f *Factory) Description() string {
	return "Generates a batch of image prompts from a theme, keeping a character's appearance description verbatim across the batch"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"theme": map[string]any{
				"type":        "string",
				"description": "What the prompts should be about",
				"examples":    []string{"sunset beach shoot", "neon city nightlife"},
			},
			"count": map[string]any{
				"type":        "number",
				"description": "Desired number of prompts",
				"default":     3,
				"minimum":     1,
				"maximum":     20,
			},
			"content_mode": map[string]any{
				"type":    "string",
				"enum":    []string{"safe", "explicit"},
				"default": "safe",
			},
			"style": map[string]any{
				"type":        "string",
				"description": "Visual style tag woven into the instruction",
			},
			"character_id": map[string]any{
				"type":        "string",
				"description": "Character whose appearance description is included verbatim",
			},
		},
		"required": []string{"theme"},
	}
}

func (f *Factory) CompanionFields() map[string]string {
	return map[string]string{"prompts": "prompts"}
}

// EstimateCredits is the flat batch cost regardless of requested count.
func (f *Factory) EstimateCredits(_ map[string]any) int {
	return promptBatchCost
}
