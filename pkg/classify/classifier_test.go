package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/comfypack/pkg/models"
)

func TestClassify_FilenameOnlyDefaultsToCheckpoint(t *testing.T) {
	labels := Classify(models.ModelReference{RawName: "sd_xl_base.safetensors"})

	assert.Equal(t, []models.Category{models.CategoryCheckpoint}, labels)
}

func TestClassify_LoraLoaderSecondSlot(t *testing.T) {
	labels := Classify(models.ModelReference{
		RawName:        "styles/mylora.safetensors",
		SourceNodeType: "LoraLoader",
		PositionHint:   1,
		SiblingCount:   3,
	})

	assert.Equal(t, []models.Category{models.CategoryLora}, labels)
}

func TestClassify_LoraLoaderFirstSlotGetsBothLabels(t *testing.T) {
	labels := Classify(models.ModelReference{
		RawName:        "sd15_base.safetensors",
		SourceNodeType: "LoraLoader",
		PositionHint:   0,
		SiblingCount:   3,
	})

	// The node implies lora, but slot 0 holding a non-adapter name is the
	// base checkpoint; the reference is filed under both.
	require.Len(t, labels, 2)
	assert.Contains(t, labels, models.CategoryLora)
	assert.Contains(t, labels, models.CategoryCheckpoint)
}

func TestClassify_FilenamePatterns(t *testing.T) {
	cases := []struct {
		name     string
		expected models.Category
	}{
		{"my_lora_v2.safetensors", models.CategoryLora},
		{"vae-ft-mse.safetensors", models.CategoryVAE},
		{"control_canny.safetensors", models.CategoryControlNet},
		{"sam_vit_h.pth", models.CategorySAM},
		{"GFPGANv1.4.pth", models.CategoryFaceRestore},
		{"4x_upscale.pt", models.CategoryUpscale},
		{"inswapper_128.onnx", models.CategoryInsightFace},
		{"plain_model.ckpt", models.CategoryCheckpoint},
	}

	for _, tc := range cases {
		labels := Classify(models.ModelReference{RawName: tc.name})
		require.NotEmpty(t, labels, tc.name)
		assert.Equal(t, tc.expected, labels[0], tc.name)
	}
}

func TestClassify_NodeTypeKeywords(t *testing.T) {
	cases := []struct {
		nodeType string
		expected models.Category
	}{
		{"CheckpointLoaderSimple", models.CategoryCheckpoint},
		{"VAELoader", models.CategoryVAE},
		{"CLIPVisionLoader", models.CategoryCLIPVision},
		{"ControlNetLoader", models.CategoryControlNet},
		{"UpscaleModelLoader", models.CategoryUpscale},
	}

	for _, tc := range cases {
		labels := Classify(models.ModelReference{
			RawName:        "model.safetensors",
			SourceNodeType: tc.nodeType,
		})
		require.NotEmpty(t, labels, tc.nodeType)
		assert.Equal(t, tc.expected, labels[0], tc.nodeType)
	}
}

func TestClassify_Stable(t *testing.T) {
	ref := models.ModelReference{
		RawName:        "styles/mylora.safetensors",
		SourceNodeType: "LoraLoader",
		PositionHint:   1,
		SiblingCount:   3,
	}

	first := Classify(ref)
	for range 10 {
		assert.Equal(t, first, Classify(ref))
	}
}
