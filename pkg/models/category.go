package models

// Category is the semantic bucket a model artifact is filed under. The values
// mirror the directory names under a ComfyUI `models/` tree so a category can
// be mapped straight to its destination directory.
type Category string

const (
	CategoryCheckpoint  Category = "checkpoints"
	CategoryLora        Category = "loras"
	CategoryVAE         Category = "vae"
	CategoryCLIP        Category = "clip"
	CategoryCLIPVision  Category = "clip_vision"
	CategoryControlNet  Category = "controlnet"
	CategoryEmbedding   Category = "embeddings"
	CategoryUpscale     Category = "upscale_models"
	CategoryFaceRestore Category = "facerestore_models"
	CategoryInsightFace Category = "insightface"
	CategoryUltralytics Category = "ultralytics"
	CategorySAM         Category = "sams"
	CategoryHypernet    Category = "hypernetworks"
	CategoryLLM         Category = "llm"
	CategoryUnknown     Category = "unknown"
)

// Categories lists every category that owns a models/ subdirectory, in the
// order package trees are laid out.
func Categories() []Category {
	return []Category{
		CategoryCheckpoint,
		CategoryLora,
		CategoryVAE,
		CategoryCLIP,
		CategoryCLIPVision,
		CategoryControlNet,
		CategoryEmbedding,
		CategoryUpscale,
		CategoryFaceRestore,
		CategoryInsightFace,
		CategoryUltralytics,
		CategorySAM,
		CategoryHypernet,
		CategoryLLM,
	}
}

// DirName returns the on-disk directory name for the category. The LLM
// directory is capitalized in stock ComfyUI installations.
func (c Category) DirName() string {
	if c == CategoryLLM {
		return "LLM"
	}

	return string(c)
}

func (c Category) String() string {
	return string(c)
}
