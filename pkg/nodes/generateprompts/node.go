// Package generateprompts provides the prompt batch generation node for
// workflow graph execution.
package generateprompts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/metrics"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

const promptBatchCost = 1

const safeSystemInstruction = `You write image generation prompts. Respond with a JSON array of prompt strings, nothing else. Every prompt must be safe-for-work. Vary pose, setting, lighting and expression between prompts.`

const explicitSystemInstruction = `You write adult image generation prompts. Respond with a JSON array of prompt strings, nothing else. Vary pose, setting, lighting and expression between prompts.`

// appearanceInstruction pins the physical description: it must be reproduced
// verbatim in every prompt so the character looks identical across the batch.
const appearanceInstruction = `Each prompt must include the following physical appearance description VERBATIM and UNMODIFIED. Do not rephrase, shorten or vary it in any way: `

// Config defines the configuration for prompt generation nodes.
type Config struct {
	Theme       string `json:"theme"`
	Count       int    `json:"count"`
	ContentMode string `json:"content_mode"`
	Style       string `json:"style,omitempty"`
	CharacterID string `json:"character_id,omitempty"`
}

// Node generates a batch of image prompts through a text provider.
type Node struct {
	logger     *slog.Logger
	config     Config
	text       protocol.TextProvider
	ledger     protocol.CreditLedger
	characters protocol.CharacterStore
}

// NewNode parses the raw configuration and builds an executor instance.
func NewNode(logger *slog.Logger, deps *Deps, config map[string]any) (*Node, error) {
	parsed := Config{
		Count:       3,
		ContentMode: "safe",
	}

	theme, ok := config["theme"].(string)
	if !ok || theme == "" {
		return nil, errors.New("missing required field 'theme'")
	}

	parsed.Theme = theme

	if count, ok := config["count"].(float64); ok && count > 0 {
		parsed.Count = int(count)
	}

	if mode, ok := config["content_mode"].(string); ok && mode != "" {
		parsed.ContentMode = mode
	}

	if style, ok := config["style"].(string); ok {
		parsed.Style = style
	}

	if characterID, ok := config["character_id"].(string); ok {
		parsed.CharacterID = characterID
	}

	return &Node{
		logger:     logger.With("module", "generate_prompts"),
		config:     parsed,
		text:       deps.Text,
		ledger:     deps.Ledger,
		characters: deps.Characters,
	}, nil
}

// Execute builds the instruction pair, dispatches to the text provider and
// parses the response into prompt strings. Costs a flat 1 credit regardless
// of requested count.
func (n *Node) Execute(ctx context.Context, userID string, _ models.ExecutionContext) (*protocol.NodeResult, error) {
	system := safeSystemInstruction
	if n.config.ContentMode == "explicit" {
		system = explicitSystemInstruction
	}

	user, err := n.buildUserMessage(ctx, userID)
	if err != nil {
		return nil, err
	}

	content, err := n.text.Complete(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("prompt generation failed: %w", err)
	}

	prompts := ParsePrompts(content)
	if len(prompts) == 0 {
		return nil, errors.New("prompt generation yielded no usable prompts")
	}

	if err := n.ledger.Deduct(ctx, userID, promptBatchCost, "prompt generation"); err != nil {
		n.logger.ErrorContext(ctx, "Credit deduction failed, continuing",
			"user_id", userID, "amount", promptBatchCost, "error", err)
	} else {
		metrics.CreditsSpent.WithLabelValues(models.NodeTypeGeneratePrompts).Add(promptBatchCost)
	}

	return &protocol.NodeResult{
		Output: map[string]any{
			"prompts": prompts,
			"count":   len(prompts),
		},
		CreditsUsed: promptBatchCost,
	}, nil
}

func (n *Node) buildUserMessage(ctx context.Context, userID string) (string, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Write %d image prompts about: %s.", n.config.Count, n.config.Theme)

	if n.config.Style != "" {
		fmt.Fprintf(&sb, " Visual style: %s.", n.config.Style)
	}

	if n.config.CharacterID != "" {
		character, err := n.characters.CharacterByID(ctx, userID, n.config.CharacterID)
		if err != nil {
			return "", fmt.Errorf("failed to load character %s: %w", n.config.CharacterID, err)
		}

		if character.Appearance != "" {
			sb.WriteString(" ")
			sb.WriteString(appearanceInstruction)
			sb.WriteString(character.Appearance)
		}
	}

	return sb.String(), nil
}
