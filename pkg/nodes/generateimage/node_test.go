package generateimage

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/generation"
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

type fakeProvider struct {
	name   string
	result *protocol.GenerationResult
	err    error

	lastReq *protocol.GenerationRequest
}

func (f *fakeProvider) Name() string {
	return f.name
}

func (f *fakeProvider) Generate(_ context.Context, req *protocol.GenerationRequest) (*protocol.GenerationResult, error) {
	f.lastReq = req

	return f.result, f.err
}

type fakeLedger struct {
	deductErr error
	deducted  int
}

func (f *fakeLedger) Balance(_ context.Context, _ string) (int, error) {
	return 100, nil
}

func (f *fakeLedger) Deduct(_ context.Context, _ string, amount int, _ string) error {
	if f.deductErr != nil {
		return f.deductErr
	}

	f.deducted += amount

	return nil
}

type fakeCharacters struct {
	character *protocol.Character
	err       error
}

func (f *fakeCharacters) CharacterByID(_ context.Context, _, _ string) (*protocol.Character, error) {
	return f.character, f.err
}

type fakeLibrary struct {
	images []string
	err    error
}

func (f *fakeLibrary) FaceLockImages(_ context.Context, _, _, _ string) ([]string, error) {
	return f.images, f.err
}

func (f *fakeLibrary) CreateRecord(_ context.Context, _ *protocol.GalleryRecord) error {
	return nil
}

func newDeps(provider *fakeProvider, ledger *fakeLedger, characters *fakeCharacters, library *fakeLibrary) *Deps {
	providers := generation.NewProviderSet()
	providers.Register(provider.name, provider, 5)

	return &Deps{
		Providers:  providers,
		Ledger:     ledger,
		Characters: characters,
		Library:    library,
	}
}

func TestNodeRequiresModel(t *testing.T) {
	_, err := NewNode(slog.Default(), &Deps{}, map[string]any{"prompt": "x"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model")
}

func TestNodeRequiresPrompt(t *testing.T) {
	provider := &fakeProvider{name: "flux"}
	deps := newDeps(provider, &fakeLedger{}, &fakeCharacters{}, &fakeLibrary{})

	node, err := NewNode(slog.Default(), deps, map[string]any{"model": "flux"})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), "u1", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt")
}

func TestNodeGeneratesAndDeducts(t *testing.T) {
	provider := &fakeProvider{
		name:   "flux",
		result: &protocol.GenerationResult{Images: []string{"https://cdn.example/a.png", "https://cdn.example/b.png"}},
	}
	ledger := &fakeLedger{}
	deps := newDeps(provider, ledger, &fakeCharacters{}, &fakeLibrary{})

	node, err := NewNode(slog.Default(), deps, map[string]any{
		"model":  "flux",
		"prompt": "a sunset",
		"count":  float64(2),
	})
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), "u1", nil)

	require.NoError(t, err)
	assert.Equal(t, 10, result.CreditsUsed)
	assert.Equal(t, 10, ledger.deducted)
	assert.Equal(t, "https://cdn.example/a.png", result.Output["image_url"])
	assert.Len(t, result.Output["image_urls"], 2)
}

func TestNodeCharacterWrapsPrompt(t *testing.T) {
	provider := &fakeProvider{
		name:   "flux",
		result: &protocol.GenerationResult{Images: []string{"https://cdn.example/a.png"}},
	}
	characters := &fakeCharacters{character: &protocol.Character{
		ID:           "c1",
		PromptPrefix: "photo of zoe,",
		PromptSuffix: ", studio lighting",
	}}
	deps := newDeps(provider, &fakeLedger{}, characters, &fakeLibrary{})

	node, err := NewNode(slog.Default(), deps, map[string]any{
		"model":        "flux",
		"prompt":       "reading a book",
		"character_id": "c1",
	})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), "u1", nil)

	require.NoError(t, err)
	assert.Equal(t, "photo of zoe, reading a book , studio lighting", provider.lastReq.Prompt)
}

func TestNodeCharacterLookupFailureDegrades(t *testing.T) {
	provider := &fakeProvider{
		name:   "flux",
		result: &protocol.GenerationResult{Images: []string{"https://cdn.example/a.png"}},
	}
	characters := &fakeCharacters{err: errors.New("not found")}
	deps := newDeps(provider, &fakeLedger{}, characters, &fakeLibrary{})

	node, err := NewNode(slog.Default(), deps, map[string]any{
		"model":        "flux",
		"prompt":       "reading a book",
		"character_id": "c1",
	})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), "u1", nil)

	require.NoError(t, err)
	assert.Equal(t, "reading a book", provider.lastReq.Prompt)
}

func TestNodeFaceLockAttachesReferences(t *testing.T) {
	provider := &fakeProvider{
		name:   "flux",
		result: &protocol.GenerationResult{Images: []string{"https://cdn.example/a.png"}},
	}
	library := &fakeLibrary{images: []string{"https://signed.example/f1.png", "https://signed.example/f2.png"}}
	deps := newDeps(provider, &fakeLedger{}, &fakeCharacters{}, library)

	node, err := NewNode(slog.Default(), deps, map[string]any{
		"model":        "flux",
		"prompt":       "a portrait",
		"character_id": "c1",
		"face_lock":    true,
	})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), "u1", nil)

	require.NoError(t, err)
	assert.Len(t, provider.lastReq.ReferenceImages, 2)
}

func TestNodeFaceLockFailureDegrades(t *testing.T) {
	provider := &fakeProvider{
		name:   "flux",
		result: &protocol.GenerationResult{Images: []string{"https://cdn.example/a.png"}},
	}
	library := &fakeLibrary{err: errors.New("library down")}
	deps := newDeps(provider, &fakeLedger{}, &fakeCharacters{}, library)

	node, err := NewNode(slog.Default(), deps, map[string]any{
		"model":        "flux",
		"prompt":       "a portrait",
		"character_id": "c1",
		"face_lock":    true,
	})
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), "u1", nil)

	require.NoError(t, err)
	assert.Empty(t, provider.lastReq.ReferenceImages)
	assert.Equal(t, 5, result.CreditsUsed)
}

func TestNodeZeroImagesIsError(t *testing.T) {
	provider := &fakeProvider{name: "flux", result: &protocol.GenerationResult{}}
	ledger := &fakeLedger{}
	deps := newDeps(provider, ledger, &fakeCharacters{}, &fakeLibrary{})

	node, err := NewNode(slog.Default(), deps, map[string]any{"model": "flux", "prompt": "x"})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), "u1", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero images")
	assert.Equal(t, 0, ledger.deducted)
}

func TestNodeQueueJobCountsAsSuccess(t *testing.T) {
	provider := &fakeProvider{
		name:   "qwen-lora",
		result: &protocol.GenerationResult{JobID: "job-7", Status: "IN_QUEUE"},
	}
	deps := newDeps(provider, &fakeLedger{}, &fakeCharacters{}, &fakeLibrary{})

	node, err := NewNode(slog.Default(), deps, map[string]any{"model": "qwen-lora", "prompt": "x"})
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), "u1", nil)

	require.NoError(t, err)
	assert.Equal(t, "job-7", result.Output["job_id"])
	assert.Equal(t, "IN_QUEUE", result.Output["status"])
}

func TestNodeDeductionFailureIsNonFatal(t *testing.T) {
	provider := &fakeProvider{
		name:   "flux",
		result: &protocol.GenerationResult{Images: []string{"https://cdn.example/a.png"}},
	}
	ledger := &fakeLedger{deductErr: errors.New("ledger down")}
	deps := newDeps(provider, ledger, &fakeCharacters{}, &fakeLibrary{})

	node, err := NewNode(slog.Default(), deps, map[string]any{"model": "flux", "prompt": "x"})
	require.NoError(t, err)

	result, err := node.Execute(context.Background(), "u1", nil)

	require.NoError(t, err)
	assert.Equal(t, 5, result.CreditsUsed)
}

func TestNodeUnknownModel(t *testing.T) {
	provider := &fakeProvider{name: "flux"}
	deps := newDeps(provider, &fakeLedger{}, &fakeCharacters{}, &fakeLibrary{})

	node, err := NewNode(slog.Default(), deps, map[string]any{"model": "unknown", "prompt": "x"})
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), "u1", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown generation model")
}

func TestFactoryEstimateCredits(t *testing.T) {
	provider := &fakeProvider{name: "flux"}
	deps := newDeps(provider, &fakeLedger{}, &fakeCharacters{}, &fakeLibrary{})

	factory := NewFactory(slog.Default(), deps)

	assert.Equal(t, 5, factory.EstimateCredits(map[string]any{"model": "flux"}))
	assert.Equal(t, 15, factory.EstimateCredits(map[string]any{"model": "flux", "count": float64(3)}))
}
