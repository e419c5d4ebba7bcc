package cmd

import (
	"log/slog"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/generation"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/nodes/generateimage"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/nodes/generateprompts"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/nodes/savegallery"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/registry"
)

// Collaborators are the external services the node executors depend on.
type Collaborators struct {
	Providers  *generation.ProviderSet
	Text       protocol.TextProvider
	Ledger     protocol.CreditLedger
	Characters protocol.CharacterStore
	Library    protocol.ImageLibrary
	Storage    protocol.GalleryStorage
}

// NewRegistry builds a registry with the built-in node factories wired to the
// given collaborators.
func NewRegistry(logger *slog.Logger, collaborators *Collaborators) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterNode(generateimage.NewFactory(logger, &generateimage.Deps{
		Providers:  collaborators.Providers,
		Ledger:     collaborators.Ledger,
		Characters: collaborators.Characters,
		Library:    collaborators.Library,
	}))

	reg.RegisterNode(generateprompts.NewFactory(logger, &generateprompts.Deps{
		Text:       collaborators.Text,
		Ledger:     collaborators.Ledger,
		Characters: collaborators.Characters,
	}))

	reg.RegisterNode(savegallery.NewFactory(logger, &savegallery.Deps{
		Storage: collaborators.Storage,
		Library: collaborators.Library,
	}))

	return reg
}
