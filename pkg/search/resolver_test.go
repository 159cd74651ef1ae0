package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/comfypack/pkg/models"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("weights"), 0o644))
}

func checkpointSet(dirs ...string) PathSet {
	return PathSet{models.CategoryCheckpoint: dirs}
}

func TestResolve_ExactPath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sd_xl_base.safetensors"))

	r := NewResolver(checkpointSet(dir))

	path, err := r.Resolve(models.CategoryCheckpoint, models.ModelReference{RawName: "sd_xl_base.safetensors"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sd_xl_base.safetensors"), path)
}

func TestResolve_SubdirExact(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "styles", "mylora.safetensors"))

	r := NewResolver(PathSet{models.CategoryLora: {dir}})

	path, err := r.Resolve(models.CategoryLora, models.ModelReference{RawName: "styles/mylora.safetensors"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "styles", "mylora.safetensors"), path)
}

func TestResolve_FlattenedNameVariants(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sd_xl_base.safetensors"))

	r := NewResolver(checkpointSet(dir))

	// Spaces in the reference are interchangeable with underscores.
	path, err := r.Resolve(models.CategoryCheckpoint, models.ModelReference{RawName: "sd xl base.safetensors"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sd_xl_base.safetensors"), path)
}

func TestResolve_ExtensionGuessOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sd_xl_base.ckpt"))
	writeFile(t, filepath.Join(dir, "sd_xl_base.safetensors"))
	writeFile(t, filepath.Join(dir, "sd_xl_base.pt"))

	r := NewResolver(checkpointSet(dir))

	// Extension-less references guess .safetensors, .ckpt, .pt in order.
	path, err := r.Resolve(models.CategoryCheckpoint, models.ModelReference{RawName: "sd_xl_base"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sd_xl_base.safetensors"), path)
}

func TestResolve_UnknownExtensionReplacedByGuesses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "orange_mix.safetensors"))

	r := NewResolver(PathSet{models.CategoryVAE: {dir}})

	// An unrecognized extension is swapped out, not appended to.
	path, err := r.Resolve(models.CategoryVAE, models.ModelReference{RawName: "orange_mix.vae"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "orange_mix.safetensors"), path)
}

func TestResolve_DirectoryPriorityBeatsLaterDirs(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(first, "model.safetensors"))
	writeFile(t, filepath.Join(second, "model.safetensors"))

	r := NewResolver(checkpointSet(first, second))

	path, err := r.Resolve(models.CategoryCheckpoint, models.ModelReference{RawName: "model.safetensors"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(first, "model.safetensors"), path)
}

func TestResolve_ShallowStageBeatsDeepMatchInEarlierDir(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	// Deep in the priority dir, flat in the lower-priority dir.
	writeFile(t, filepath.Join(first, "nested", "deeper", "model.safetensors"))
	writeFile(t, filepath.Join(second, "model.safetensors"))

	r := NewResolver(checkpointSet(first, second))

	// Each stage scans all directories before the cascade advances, so the
	// flat-name stage wins in the lower-priority directory.
	path, err := r.Resolve(models.CategoryCheckpoint, models.ModelReference{RawName: "model.safetensors"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(second, "model.safetensors"), path)
}

func TestResolve_SubdirFuzzyCase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Styles", "mylora.safetensors"))

	r := NewResolver(PathSet{models.CategoryLora: {dir}})

	path, err := r.Resolve(models.CategoryLora, models.ModelReference{RawName: "styles/mylora.safetensors"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Styles", "mylora.safetensors"), path)
}

func TestResolve_OneLevelSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sdxl", "model.safetensors"))

	r := NewResolver(checkpointSet(dir))

	path, err := r.Resolve(models.CategoryCheckpoint, models.ModelReference{RawName: "model.safetensors"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sdxl", "model.safetensors"), path)
}

func TestResolve_RecursiveWalkCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "b", "c", "Model.SafeTensors"))

	r := NewResolver(checkpointSet(dir))

	path, err := r.Resolve(models.CategoryCheckpoint, models.ModelReference{RawName: "model.safetensors"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a", "b", "c", "Model.SafeTensors"), path)
}

func TestResolve_RecursiveWalkPrefersSubpathDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "misc", "deep", "mylora.safetensors"))
	writeFile(t, filepath.Join(dir, "zz", "styles", "mylora.safetensors"))

	r := NewResolver(PathSet{models.CategoryLora: {dir}})

	path, err := r.Resolve(models.CategoryLora, models.ModelReference{RawName: "styles/mylora.safetensors"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "zz", "styles", "mylora.safetensors"), path)
}

func TestResolve_AlternateCategoryFallback(t *testing.T) {
	checkpoints := t.TempDir()
	loras := t.TempDir()
	writeFile(t, filepath.Join(loras, "misfiled.safetensors"))

	r := NewResolver(PathSet{
		models.CategoryCheckpoint: {checkpoints},
		models.CategoryLora:       {loras},
	})

	path, err := r.Resolve(models.CategoryCheckpoint, models.ModelReference{RawName: "misfiled.safetensors"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(loras, "misfiled.safetensors"), path)
}

func TestResolve_MissReturnsNotFound(t *testing.T) {
	r := NewResolver(checkpointSet(t.TempDir()))

	_, err := r.Resolve(models.CategoryCheckpoint, models.ModelReference{RawName: "ghost.safetensors"})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestResolve_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "stable.safetensors"))

	r := NewResolver(checkpointSet(dir))
	ref := models.ModelReference{RawName: "stable.safetensors"}

	first, err := r.Resolve(models.CategoryCheckpoint, ref)
	require.NoError(t, err)

	for range 5 {
		again, err := r.Resolve(models.CategoryCheckpoint, ref)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolve_AbsolutePathShortCircuits(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "anywhere.safetensors")
	writeFile(t, abs)

	r := NewResolver(checkpointSet(t.TempDir()))

	path, err := r.Resolve(models.CategoryCheckpoint, models.ModelReference{RawName: abs})
	require.NoError(t, err)
	assert.Equal(t, abs, path)
}
