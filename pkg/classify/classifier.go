// Package classify assigns semantic categories to model references using a
// three-tier cascade: node-type keywords, filename patterns, then positional
// refinement for multi-slot loader nodes. Classification is pure and stable:
// identical inputs always produce the identical label set.
package classify

import (
	"path"
	"strings"

	"github.com/dukex/comfypack/pkg/models"
)

type nodeTypeRule struct {
	keyword  string
	category models.Category
}

// Ordered node-type keyword table; first match wins. Longer, more specific
// keywords sit above the generic ones they contain.
var nodeTypeRules = []nodeTypeRule{
	{"clipvision", models.CategoryCLIPVision},
	{"visionloader", models.CategoryCLIPVision},
	{"checkpointloader", models.CategoryCheckpoint},
	{"loadcheckpoint", models.CategoryCheckpoint},
	{"checkpoint", models.CategoryCheckpoint},
	{"vaeloader", models.CategoryVAE},
	{"loadvae", models.CategoryVAE},
	{"vae", models.CategoryVAE},
	{"variational", models.CategoryVAE},
	{"loraloader", models.CategoryLora},
	{"loadlora", models.CategoryLora},
	{"lora", models.CategoryLora},
	{"loha", models.CategoryLora},
	{"lycoris", models.CategoryLora},
	{"textualinversion", models.CategoryEmbedding},
	{"loadembedding", models.CategoryEmbedding},
	{"embedding", models.CategoryEmbedding},
	{"hypernetwork", models.CategoryHypernet},
	{"loadhyper", models.CategoryHypernet},
	{"controlnet", models.CategoryControlNet},
	{"loadcontrol", models.CategoryControlNet},
	{"control", models.CategoryControlNet},
	{"upscaler", models.CategoryUpscale},
	{"upscale", models.CategoryUpscale},
	{"esrgan", models.CategoryUpscale},
	{"facedetection", models.CategoryInsightFace},
	{"insightface", models.CategoryInsightFace},
	{"facerestore", models.CategoryFaceRestore},
	{"gfpgan", models.CategoryFaceRestore},
	{"codeformer", models.CategoryFaceRestore},
	{"ultralytics", models.CategoryUltralytics},
	{"yolo", models.CategoryUltralytics},
	{"detection", models.CategoryUltralytics},
	{"segmentanything", models.CategorySAM},
	{"segment", models.CategorySAM},
	{"sam", models.CategorySAM},
	{"languagemodel", models.CategoryLLM},
	{"textgen", models.CategoryLLM},
	{"llm", models.CategoryLLM},
	{"loadclip", models.CategoryCLIP},
	{"cliploader", models.CategoryCLIP},
	{"clip", models.CategoryCLIP},
	{"sdxl", models.CategoryCheckpoint},
	{"diffus", models.CategoryCheckpoint},
	{"load", models.CategoryCheckpoint},
	{"model", models.CategoryCheckpoint},
}

// Classify returns the categories a reference is filed under. More than one
// label means the artifact should be copied into every named bucket.
func Classify(ref models.ModelReference) []models.Category {
	labels := make([]models.Category, 0, 2)

	base, ok := fromNodeType(ref.SourceNodeType)
	if !ok {
		base = fromFilename(ref.RawName)
	}

	labels = append(labels, base)

	if refined, ok := refine(ref); ok && refined != base {
		labels = append(labels, refined)
	}

	return labels
}

func fromNodeType(nodeType string) (models.Category, bool) {
	if nodeType == "" {
		return models.CategoryUnknown, false
	}

	lower := strings.ToLower(nodeType)
	for _, rule := range nodeTypeRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.category, true
		}
	}

	return models.CategoryUnknown, false
}

func fromFilename(name string) models.Category {
	lower := strings.ToLower(name)

	switch {
	case strings.HasSuffix(lower, ".safetensors"), strings.HasSuffix(lower, ".ckpt"):
		switch {
		case strings.Contains(lower, "lora"):
			return models.CategoryLora
		case strings.Contains(lower, "vae"):
			return models.CategoryVAE
		case strings.Contains(lower, "embedding"), strings.Contains(lower, "embed"),
			strings.Contains(lower, "/embeddings/"):
			return models.CategoryEmbedding
		case strings.Contains(lower, "controlnet"), strings.Contains(lower, "control_"),
			strings.Contains(lower, "/control/"):
			return models.CategoryControlNet
		case strings.Contains(lower, "inpaint") &&
			!strings.Contains(lower, "sd15_inpaint") && !strings.Contains(lower, "sd_inpaint"):
			// Inpaint models outside the SD base family are usually controlnets.
			return models.CategoryControlNet
		case strings.Contains(lower, "clip") &&
			(strings.Contains(lower, "vision") || strings.Contains(lower, "/clip_vision/")):
			return models.CategoryCLIPVision
		case strings.Contains(lower, "clip"), strings.Contains(lower, "/clip/"):
			return models.CategoryCLIP
		default:
			return models.CategoryCheckpoint
		}
	case strings.HasSuffix(lower, ".pt"), strings.HasSuffix(lower, ".pth"):
		switch {
		case strings.Contains(lower, "sam"), strings.Contains(lower, "/sam/"):
			return models.CategorySAM
		case strings.Contains(lower, "gfpgan"), strings.Contains(lower, "codeformer"),
			strings.Contains(lower, "face"), strings.Contains(lower, "/facerestore/"):
			return models.CategoryFaceRestore
		case strings.Contains(lower, "upscale"), strings.Contains(lower, "esrgan"),
			strings.Contains(lower, "/upscaler/"), strings.Contains(lower, "/upscale_models/"):
			return models.CategoryUpscale
		}
	case strings.HasSuffix(lower, ".onnx"):
		if strings.Contains(lower, "inswapper") || strings.Contains(lower, "insight") ||
			strings.Contains(lower, "/insightface/") {
			return models.CategoryInsightFace
		}
	}

	return models.CategoryCheckpoint
}

// refine adjusts the label using slot position for nodes that load more than
// one kind of model. A LoRA loader's first slot is usually the base
// checkpoint; later slots are the adapters themselves.
func refine(ref models.ModelReference) (models.Category, bool) {
	nodeType := strings.ToLower(ref.SourceNodeType)
	value := strings.ToLower(ref.RawName)

	switch {
	case (strings.Contains(nodeType, "lora") || strings.Contains(nodeType, "lycoris")) && ref.SiblingCount >= 3:
		if ref.PositionHint == 0 &&
			(strings.Contains(value, "checkpoint") ||
				(!strings.Contains(value, "lora") && !strings.Contains(value, "lyco"))) {
			return models.CategoryCheckpoint, true
		}

		if strings.Contains(value, "lora") || strings.Contains(value, "lyco") ||
			ref.PositionHint == 1 || ref.PositionHint == 2 {
			return models.CategoryLora, true
		}
	case strings.Contains(nodeType, "control") && ref.SiblingCount >= 2:
		if ref.PositionHint == 0 &&
			(strings.Contains(value, "sd") || strings.Contains(value, "stable")) {
			return models.CategoryCheckpoint, true
		}

		if strings.Contains(value, "control") || ref.PositionHint == 1 {
			return models.CategoryControlNet, true
		}
	case strings.Contains(nodeType, "upscale") && ref.SiblingCount >= 2:
		return models.CategoryUpscale, true
	case strings.Contains(nodeType, "loader") && ref.SiblingCount >= 2:
		base := path.Base(value)

		switch {
		case strings.Contains(base, "vae"):
			return models.CategoryVAE, true
		case strings.Contains(base, "lora"):
			return models.CategoryLora, true
		case strings.Contains(base, "control"):
			return models.CategoryControlNet, true
		case strings.Contains(base, "embed"):
			return models.CategoryEmbedding, true
		}
	}

	return models.CategoryUnknown, false
}
