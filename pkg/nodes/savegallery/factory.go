// Package savegallery provides the gallery save node factory for the registry
// system.
package savegallery

import (
	"context"
	"log/slog"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

// Deps are the collaborators every gallery save node needs.
type Deps struct {
	Storage protocol.GalleryStorage
	Library protocol.ImageLibrary
}

// Factory creates gallery save node instances.
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
	return models.NodeTypeSaveGallery
}

func (f *Factory) Name() string {
	return "Save to Gallery"
}

func (f *Factory) Description() string {
	return "Saves generated images into the user's storage namespace and library, returning time-bounded signed URLs"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"image_url": map[string]any{
				"type":        "string",
				"description": "Single image to save, as a remote URL or data URI. Usually wired from a generation node",
				"examples":    []string{"{{image_node.image_url}}"},
			},
			"image_urls": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Batch of images to save. Each is attempted independently",
			},
			"folder": map[string]any{
				"type":        "string",
				"description": "Folder tag inside the user's namespace",
				"default":     "gallery",
			},
		},
	}
}

func (f *Factory) CompanionFields() map[string]string {
	return map[string]string{"gallery_url": "gallery_urls"}
}

// EstimateCredits is zero: saving has no compute cost.
func (f *Factory) EstimateCredits(_ map[string]any) int {
	return 0
}
