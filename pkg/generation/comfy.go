package generation

import (
	"github.com/digital-divas-admin/vixxxen-engine/pkg/protocol"
)

// characterSlotPlaceholder is what the primary LoRA slot carries when no
// character LoRA is requested. The router's affinity guard ignores it.
const characterSlotPlaceholder = "character"

// ComfyPayload builds the GPU backends' native workflow payload: a node map
// of id -> {class_type, inputs}. The character LoRA rides in the loader's
// primary slot, where the router's affinity guard reads it.
func ComfyPayload(req *protocol.GenerationRequest) map[string]any {
	lora, _ := req.Params["lora"].(string)

	slot := map[string]any{
		"on":       lora != "",
		"lora":     characterSlotPlaceholder,
		"strength": 1.0,
	}
	if lora != "" {
		slot["lora"] = lora
	}

	steps := 28.0
	if raw, ok := req.Params["steps"].(float64); ok && raw > 0 {
		steps = raw
	}

	cfg := 4.5
	if raw, ok := req.Params["cfg"].(float64); ok && raw > 0 {
		cfg = raw
	}

	return map[string]any{
		"3": map[string]any{
			"class_type": "KSampler",
			"inputs": map[string]any{
				"steps":     steps,
				"cfg":       cfg,
				"sampler":   "euler",
				"scheduler": "simple",
			},
		},
		"5": map[string]any{
			"class_type": "EmptyLatentImage",
			"inputs": map[string]any{
				"width":      req.Width,
				"height":     req.Height,
				"batch_size": req.Count,
			},
		},
		"6": map[string]any{
			"class_type": "CLIPTextEncode",
			"inputs": map[string]any{
				"text": req.Prompt,
			},
		},
		"10": map[string]any{
			"class_type": "Power Lora Loader (rgthree)",
			"inputs": map[string]any{
				"lora_1": slot,
			},
		},
	}
}
