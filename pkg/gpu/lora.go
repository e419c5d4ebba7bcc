package gpu

// loraPlaceholder is the unset value the workflow builder leaves in the
// primary character slot. It never names a real LoRA.
const loraPlaceholder = "character"

// ExtractCharacterLoRA locates the LoRA-loader block inside a generation
// payload and returns the character LoRA its primary slot requests, or ""
// when no character LoRA is requested. The payload is a node map in the
// backend's native shape: node id -> {class_type, inputs}.
//
// The primary character slot is the first slot of the loader. It counts only
// when enabled and not left at the placeholder value, so a disabled or unset
// slot never blocks affinity routing.
func ExtractCharacterLoRA(payload map[string]any) string {
	for _, raw := range payload {
		node, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		classType, _ := node["class_type"].(string)
		if classType != "LoraLoader" && classType != "Power Lora Loader (rgthree)" {
			continue
		}

		inputs, ok := node["inputs"].(map[string]any)
		if !ok {
			continue
		}

		slot, ok := inputs["lora_1"].(map[string]any)
		if !ok {
			continue
		}

		if enabled, _ := slot["on"].(bool); !enabled {
			continue
		}

		name, _ := slot["lora"].(string)
		if name == "" || name == loraPlaceholder {
			continue
		}

		return name
	}

	return ""
}
