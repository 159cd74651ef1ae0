package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlugin(t *testing.T, root, name string, files map[string]string) string {
	t.Helper()

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	for file, content := range files {
		path := filepath.Join(dir, file)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	return dir
}

func TestBuild_MissingRootYieldsEmptyCatalog(t *testing.T) {
	cat, err := Build(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, cat.Entries())

	entries, dropped := cat.Resolve([]string{"anything"})
	assert.Empty(t, entries)
	assert.Equal(t, []string{"anything"}, dropped)
}

func TestBuild_FolderNameAlias(t *testing.T) {
	root := t.TempDir()
	path := writePlugin(t, root, "ComfyUI-Impact-Pack", nil)

	cat, err := Build(root)
	require.NoError(t, err)

	entry, ok := cat.Lookup("comfyui-impact-pack")
	require.True(t, ok)
	assert.Equal(t, "ComfyUI-Impact-Pack", entry.CanonicalName)
	assert.Equal(t, path, entry.InstallPath)
}

func TestBuild_MetadataAliases(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "impact-pack", map[string]string{
		"manifest.json": `{"id": "Impact-Nodes", "name": "Impact Pack", "requires": ["ComfyUI-Manager"]}`,
	})

	cat, err := Build(root)
	require.NoError(t, err)

	entry, ok := cat.Lookup("impact-nodes")
	require.True(t, ok)
	assert.Equal(t, "impact-pack", entry.CanonicalName)
	assert.Equal(t, []string{"ComfyUI-Manager"}, entry.Requires)
}

func TestBuild_SourcePatternAliases(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "my-nodes", map[string]string{
		"nodes.py": "NODE_CLASS_MAPPINGS[\"FaceDetailer\"] = FaceDetailer\n",
	})

	cat, err := Build(root)
	require.NoError(t, err)

	entry, ok := cat.Lookup("facedetailer")
	require.True(t, ok)
	assert.Equal(t, "my-nodes", entry.CanonicalName)

	// The namespaced form is registered alongside the bare match.
	_, ok = cat.Lookup("my-nodes/facedetailer")
	assert.True(t, ok)
}

func TestBuild_PermutationAliases(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "Upscale-Nodes", nil)

	cat, err := Build(root)
	require.NoError(t, err)

	for _, alias := range []string{
		"comfyui-upscale-nodes",
		"upscale-nodes_nodes",
		"unknown/upscale-nodes",
		"unknown/comfyui-upscale-nodes",
	} {
		_, ok := cat.Lookup(alias)
		assert.True(t, ok, alias)
	}
}

func TestLookup_ConfidenceOrderOnCollision(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "alpha", map[string]string{
		"config.json": `{"id": "shared-name"}`,
	})
	writePlugin(t, root, "shared-name", nil)

	cat, err := Build(root)
	require.NoError(t, err)

	// The folder-name registration outranks alpha's metadata claim.
	entry, ok := cat.Lookup("shared-name")
	require.True(t, ok)
	assert.Equal(t, "shared-name", entry.CanonicalName)

	alts := cat.Alternatives("shared-name")
	require.Len(t, alts, 1)
	assert.Equal(t, "alpha", alts[0].CanonicalName)
}

func TestResolve_ExactBeforeFuzzy(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "ComfyUI-Impact-Pack", nil)

	cat, err := Build(root)
	require.NoError(t, err)

	entries, dropped := cat.Resolve([]string{"comfyui-impact-pack"})
	require.Len(t, entries, 1)
	assert.Empty(t, dropped)
	assert.Equal(t, "ComfyUI-Impact-Pack", entries[0].CanonicalName)
}

func TestResolve_SeparatorNormalizedFuzzyMatch(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "Upscale-Nodes", nil)

	cat, err := Build(root)
	require.NoError(t, err)

	// No alias carries this underscore spelling; separator normalization
	// still maps it onto the installed folder.
	entries, dropped := cat.Resolve([]string{"unknown/comfyui_upscale_nodes"})
	require.Len(t, entries, 1)
	assert.Empty(t, dropped)
	assert.Equal(t, "Upscale-Nodes", entries[0].CanonicalName)
}

func TestResolve_DropsUnresolvable(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "some-plugin", nil)

	cat, err := Build(root)
	require.NoError(t, err)

	entries, dropped := cat.Resolve([]string{"zzz/qqqxyz"})
	assert.Empty(t, entries)
	assert.Equal(t, []string{"zzz/qqqxyz"}, dropped)
}
