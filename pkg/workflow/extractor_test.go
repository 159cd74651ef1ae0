package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/comfypack/pkg/models"
)

func TestExtract_PluginIDsFromProperties(t *testing.T) {
	doc := &models.Document{Nodes: []models.Node{
		{
			Type:       "SomeNode",
			Properties: map[string]any{"cnr_id": "ComfyUI-Impact-Pack"},
		},
		{
			Type:       "OtherNode",
			Properties: map[string]any{"aux_id": "author/repo", "ignored": "value"},
		},
	}}

	plugins, _, _ := NewExtractor().Extract(doc)

	assert.Contains(t, plugins, "comfyui-impact-pack")
	assert.Contains(t, plugins, "author/repo")
}

func TestExtract_ModelReferences(t *testing.T) {
	doc := &models.Document{Nodes: []models.Node{
		{
			Type: "LoraLoader",
			ParameterValues: []any{
				"sd15_base.safetensors",
				"styles/mylora.safetensors",
				0.75,
			},
		},
	}}

	_, refs, _ := NewExtractor().Extract(doc)

	require.Len(t, refs, 2)
	assert.Equal(t, "sd15_base.safetensors", refs[0].RawName)
	assert.Equal(t, "LoraLoader", refs[0].SourceNodeType)
	assert.Equal(t, 0, refs[0].PositionHint)
	assert.Equal(t, 3, refs[0].SiblingCount)
	assert.Equal(t, "styles/mylora.safetensors", refs[1].RawName)
	assert.Equal(t, 1, refs[1].PositionHint)
}

func TestExtract_FiltersNonModelValues(t *testing.T) {
	doc := &models.Document{Nodes: []models.Node{
		{
			Type: "KSampler",
			ParameterValues: []any{
				"randomize",          // denylist
				"none",               // denylist
				"a.pt",               // too short
				"prompt text here",   // no model extension
				"RealESRGAN_x4.pth",  // valid
				true,
				42,
			},
		},
	}}

	_, refs, _ := NewExtractor().Extract(doc)

	require.Len(t, refs, 1)
	assert.Equal(t, "RealESRGAN_x4.pth", refs[0].RawName)
}

func TestExtract_NodeTypeCandidates(t *testing.T) {
	doc := &models.Document{Nodes: []models.Node{
		{Type: "impact_face_detailer"},
		{Type: "Reroute"},
		{Type: "Note"},
	}}

	plugins, _, _ := NewExtractor().Extract(doc)

	// The node type, its prefixes, and the namespaced forms all become
	// candidates; builtins do not.
	assert.Contains(t, plugins, "impact_face_detailer")
	assert.Contains(t, plugins, "impact")
	assert.Contains(t, plugins, "impact/impact_face_detailer")
	assert.Contains(t, plugins, "impact_face")
	assert.Contains(t, plugins, "impact_face/impact_face_detailer")
	assert.NotContains(t, plugins, "reroute")
	assert.NotContains(t, plugins, "note")
}

func TestExtract_EmptyDocument(t *testing.T) {
	plugins, refs, warnings := NewExtractor().Extract(&models.Document{})

	assert.Empty(t, plugins)
	assert.Empty(t, refs)
	assert.NotEmpty(t, warnings)
}
