package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/comfypack/pkg/models"
)

func TestNewPathSet_Defaults(t *testing.T) {
	set := NewPathSet("/opt/comfyui")

	assert.Equal(t, []string{"/opt/comfyui/models/checkpoints"}, set[models.CategoryCheckpoint])
	assert.Equal(t, []string{"/opt/comfyui/models/LLM"}, set[models.CategoryLLM])
	assert.Len(t, set, len(models.Categories()))
}

func TestLoadExtraPaths_MergesAndPrioritizes(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "extra_model_paths.yaml")

	content := `
a1111:
  base_path: /data/sd
  is_default: true
  checkpoints: models/Stable-diffusion
other:
  base_path: /data/other
  loras: |
    lora-a
    lora-b
broken:
  checkpoints: nowhere
`
	require.NoError(t, os.WriteFile(yamlPath, []byte(content), 0o644))

	set := NewPathSet("/opt/comfyui")
	require.NoError(t, set.LoadExtraPaths(yamlPath))

	// is_default sections are prepended ahead of the built-in default.
	assert.Equal(t, []string{
		"/data/sd/models/Stable-diffusion",
		"/opt/comfyui/models/checkpoints",
	}, set[models.CategoryCheckpoint])

	// Multi-line values append one directory per line.
	assert.Equal(t, []string{
		"/opt/comfyui/models/loras",
		"/data/other/lora-a",
		"/data/other/lora-b",
	}, set[models.CategoryLora])
}

func TestLoadExtraPaths_MissingFile(t *testing.T) {
	set := NewPathSet("/opt/comfyui")
	assert.Error(t, set.LoadExtraPaths(filepath.Join(t.TempDir(), "nope.yaml")))
}
