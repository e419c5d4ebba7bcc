package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
)

func testContext() models.ExecutionContext {
	return models.ExecutionContext{
		"prompts": {
			"prompts": []any{"a portrait at golden hour", "a stroll at night"},
			"count":   2,
		},
		"image": {
			"image_urls": []any{"https://cdn.example.com/one.png"},
			"meta": map[string]any{
				"seed": 42.0,
			},
		},
	}
}

func TestResolveStringWholeTokenPreservesType(t *testing.T) {
	execCtx := testContext()

	// A string that is exactly one token splices the referenced value as-is.
	value := ResolveString("{{prompts.prompts}}", execCtx)
	list, ok := value.([]any)
	require.True(t, ok)
	assert.Len(t, list, 2)

	value = ResolveString("{{prompts.count}}", execCtx)
	assert.Equal(t, 2, value)

	value = ResolveString("{{image.meta.seed}}", execCtx)
	assert.Equal(t, 42.0, value)
}

func TestResolveStringEmbeddedToken(t *testing.T) {
	execCtx := testContext()

	// String values substitute directly.
	value := ResolveString("render: {{prompts.prompts.0}}", execCtx)
	assert.Equal(t, "render: a portrait at golden hour", value)

	// Non-string values substitute as their JSON encoding.
	value = ResolveString("n={{prompts.count}}", execCtx)
	assert.Equal(t, "n=2", value)

	value = ResolveString("urls={{image.image_urls}}", execCtx)
	assert.Equal(t, `urls=["https://cdn.example.com/one.png"]`, value)
}

func TestResolveStringArrayIndexLookup(t *testing.T) {
	execCtx := testContext()

	assert.Equal(t, "a stroll at night", ResolveString("{{prompts.prompts.1}}", execCtx))

	// Out-of-range, negative, and non-numeric indexes leave the token intact.
	assert.Equal(t, "{{prompts.prompts.5}}", ResolveString("{{prompts.prompts.5}}", execCtx))
	assert.Equal(t, "{{prompts.prompts.-1}}", ResolveString("{{prompts.prompts.-1}}", execCtx))
	assert.Equal(t, "{{prompts.prompts.x}}", ResolveString("{{prompts.prompts.x}}", execCtx))
}

func TestResolveStringUnresolvedTokenUntouched(t *testing.T) {
	execCtx := testContext()

	// Missing node, missing field, and pathless tokens stay byte-for-byte.
	assert.Equal(t, "{{missing.field}}", ResolveString("{{missing.field}}", execCtx))
	assert.Equal(t, "{{prompts.nope}}", ResolveString("{{prompts.nope}}", execCtx))
	assert.Equal(t, "{{prompts}}", ResolveString("{{prompts}}", execCtx))
	assert.Equal(t, "keep {{missing.field}} here", ResolveString("keep {{missing.field}} here", execCtx))
}

func TestResolveConfigRecursesAndDoesNotMutate(t *testing.T) {
	execCtx := testContext()

	config := map[string]any{
		"prompt": "{{prompts.prompts.0}}",
		"nested": map[string]any{
			"urls": "{{image.image_urls}}",
		},
		"list":  []any{"{{prompts.count}}", "static"},
		"width": 1024,
	}

	resolved := ResolveConfig(config, execCtx)

	assert.Equal(t, "a portrait at golden hour", resolved["prompt"])
	assert.Equal(t, 1024, resolved["width"])

	nested, ok := resolved["nested"].(map[string]any)
	require.True(t, ok)
	urls, ok := nested["urls"].([]any)
	require.True(t, ok)
	assert.Len(t, urls, 1)

	list, ok := resolved["list"].([]any)
	require.True(t, ok)
	assert.Equal(t, 2, list[0])
	assert.Equal(t, "static", list[1])

	// The input config keeps its tokens.
	assert.Equal(t, "{{prompts.prompts.0}}", config["prompt"])
	assert.Equal(t, "{{image.image_urls}}", config["nested"].(map[string]any)["urls"])
}

func TestResolveConfigIdempotent(t *testing.T) {
	execCtx := testContext()

	config := map[string]any{
		"s":    "{{prompts.prompts.0}}",
		"mix":  "n={{prompts.count}}",
		"miss": "{{missing.field}} stays",
	}

	once := ResolveConfig(config, execCtx)
	twice := ResolveConfig(once, execCtx)

	assert.Equal(t, once, twice)
	assert.Equal(t, "n=2", twice["mix"])
	assert.Equal(t, "{{missing.field}} stays", twice["miss"])
}
