// Package template resolves {{nodeId.field}} interpolation tokens inside node
// configurations against the outputs recorded in an execution context.
//
// Resolution is a typed walk over the config's actual structure rather than a
// serialize/replace/deserialize round trip, so values containing characters
// that need JSON escaping cannot corrupt the config. Semantics:
//
//   - a string that is exactly one token resolves to the referenced value with
//     its type preserved
//   - a token embedded in a larger string substitutes directly when the value
//     is a string, and as its JSON encoding otherwise
//   - a token referencing a missing node or field is left byte-for-byte
//     untouched
//
// Resolving twice against an unchanged context yields the same result.
package template

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/digital-divas-admin/vixxxen-engine/pkg/models"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// ResolveConfig returns a copy of config with every resolvable token
// substituted. The input config is not mutated.
func ResolveConfig(config map[string]any, executionCtx models.ExecutionContext) map[string]any {
	resolved := make(map[string]any, len(config))
	for key, value := range config {
		resolved[key] = resolveValue(value, executionCtx)
	}

	return resolved
}

func resolveValue(value any, executionCtx models.ExecutionContext) any {
	switch typed := value.(type) {
	case string:
		return ResolveString(typed, executionCtx)
	case map[string]any:
		return ResolveConfig(typed, executionCtx)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = resolveValue(item, executionCtx)
		}

		return out
	default:
		return value
	}
}

// ResolveString substitutes tokens inside one string. When the whole string is
// a single token, the referenced value is returned with its type preserved.
func ResolveString(input string, executionCtx models.ExecutionContext) any {
	match := tokenPattern.FindStringSubmatch(input)
	if match != nil && match[0] == input {
		value, ok := lookup(match[1], executionCtx)
		if !ok {
			return input
		}

		return value
	}

	return tokenPattern.ReplaceAllStringFunc(input, func(token string) string {
		path := tokenPattern.FindStringSubmatch(token)[1]

		value, ok := lookup(path, executionCtx)
		if !ok {
			return token
		}

		if str, isString := value.(string); isString {
			return str
		}

		encoded, err := json.Marshal(value)
		if err != nil {
			return token
		}

		return string(encoded)
	})
}

// lookup walks a dotted path like "node.prompts.0" through the execution
// context. The first segment names a node, the rest index into its output.
func lookup(path string, executionCtx models.ExecutionContext) (any, bool) {
	segments := strings.Split(path, ".")
	if len(segments) < 2 {
		return nil, false
	}

	output, ok := executionCtx[segments[0]]
	if !ok {
		return nil, false
	}

	var current any = map[string]any(output)

	for _, segment := range segments[1:] {
		switch container := current.(type) {
		case map[string]any:
			next, found := container[segment]
			if !found {
				return nil, false
			}

			current = next
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(container) {
				return nil, false
			}

			current = container[index]
		default:
			return nil, false
		}
	}

	return current, true
}
