package generateprompts

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

type fakeText struct {
	response string
	err      error

	system string
	user   string
}

func (f *fakeText) Complete(_ context.Context, system, user string) (string, error) {
	f.system = system
	f.user = user

	return f.response, f.err
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

func newPromptNode(t *testing.T, text *fakeText, ledger *fakeLedger, characters *fakeCharacters, config map[string]any) *Node {
	t.Helper()

	node, err := NewNode(slog.Default(), &Deps{Text: text, Ledger: ledger, Characters: characters}, config)
	require.NoError(t, err)

	return node
}

func TestNodeRequiresTheme(t *testing.T) {
	_, err := NewNode(slog.Default(), &Deps{}, map[string]any{"count": float64(3)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "theme")
}

func TestNodeGeneratesPromptBatch(t *testing.T) {
	text := &fakeText{response: `["a sunset over dunes in warm light", "a walk along the shore at dusk"]`}
	ledger := &fakeLedger{}

	node := newPromptNode(t, text, ledger, &fakeCharacters{}, map[string]any{
		"theme": "sunset",
		"count": float64(2),
		"style": "cinematic",
	})

	result, err := node.Execute(context.Background(), "u1", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, result.CreditsUsed)
	assert.Equal(t, 1, ledger.deducted)
	assert.Equal(t, 2, result.Output["count"])
	assert.Contains(t, text.user, "2 image prompts")
	assert.Contains(t, text.user, "cinematic")
}

func TestNodeExplicitModeSelectsInstruction(t *testing.T) {
	text := &fakeText{response: `["a long detailed prompt about city lights"]`}

	node := newPromptNode(t, text, &fakeLedger{}, &fakeCharacters{}, map[string]any{
		"theme":        "nightlife",
		"content_mode": "explicit",
	})

	_, err := node.Execute(context.Background(), "u1", nil)

	require.NoError(t, err)
	assert.Equal(t, explicitSystemInstruction, text.system)
}

func TestNodeIncludesAppearanceVerbatim(t *testing.T) {
	appearance := "long auburn hair, green eyes, freckles across the nose"
	text := &fakeText{response: `["a long detailed prompt about a garden"]`}
	characters := &fakeCharacters{character: &protocol.Character{ID: "c1", Appearance: appearance}}

	node := newPromptNode(t, text, &fakeLedger{}, characters, map[string]any{
		"theme":        "garden party",
		"character_id": "c1",
	})

	_, err := node.Execute(context.Background(), "u1", nil)

	require.NoError(t, err)
	assert.Contains(t, text.user, appearance)
	assert.Contains(t, text.user, "VERBATIM")
}

func TestNodeCharacterLookupFailureIsFatal(t *testing.T) {
	text := &fakeText{response: `["whatever"]`}
	characters := &fakeCharacters{err: errors.New("not found")}

	node := newPromptNode(t, text, &fakeLedger{}, characters, map[string]any{
		"theme":        "garden party",
		"character_id": "c1",
	})

	_, err := node.Execute(context.Background(), "u1", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "c1")
}

func TestNodeZeroPromptsIsError(t *testing.T) {
	text := &fakeText{response: "Sorry."}

	node := newPromptNode(t, text, &fakeLedger{}, &fakeCharacters{}, map[string]any{"theme": "sunset"})

	_, err := node.Execute(context.Background(), "u1", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable prompts")
}

func TestNodeProviderErrorPropagates(t *testing.T) {
	text := &fakeText{err: errors.New("HTTP 500 from provider")}

	node := newPromptNode(t, text, &fakeLedger{}, &fakeCharacters{}, map[string]any{"theme": "sunset"})

	_, err := node.Execute(context.Background(), "u1", nil)

	require.Error(t, err)
}

func TestNodeDeductionFailureIsNonFatal(t *testing.T) {
	text := &fakeText{response: `["a long detailed prompt about a sunset"]`}
	ledger := &fakeLedger{deductErr: errors.New("ledger down")}

	node := newPromptNode(t, text, ledger, &fakeCharacters{}, map[string]any{"theme": "sunset"})

	result, err := node.Execute(context.Background(), "u1", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, result.CreditsUsed)
}
