// Package workflow decodes workflow documents and extracts the plugin and
// model references they depend on.
package workflow

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dukex/comfypack/pkg/models"
)

// Load reads and decodes a workflow file. A missing or unreadable file is a
// fatal input error; an unrecognized document shape is not, and yields an
// empty document alongside models.ErrUnrecognizedFormat.
func Load(path string) (*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading workflow %s: %w", models.ErrFatalInput, path, err)
	}

	return Decode(data)
}

// Decode tolerates the document shapes seen in the wild: a top-level
// `nodes` array, a nested `workflow.nodes` array, a bare node array, or any
// top-level key holding an array of objects that carry a `type` field. A
// present-but-empty `nodes` array is a valid empty workflow, not a format
// error.
func Decode(data []byte) (*models.Document, error) {
	var doc struct {
		Nodes *[]models.Node `json:"nodes"`
	}
	if err := json.Unmarshal(data, &doc); err == nil && doc.Nodes != nil {
		return &models.Document{Nodes: *doc.Nodes}, nil
	}

	var nested struct {
		Workflow struct {
			Nodes *[]models.Node `json:"nodes"`
		} `json:"workflow"`
	}
	if err := json.Unmarshal(data, &nested); err == nil && nested.Workflow.Nodes != nil {
		return &models.Document{Nodes: *nested.Workflow.Nodes}, nil
	}

	var bare []models.Node
	if err := json.Unmarshal(data, &bare); err == nil && len(bare) > 0 && bare[0].Type != "" {
		return &models.Document{Nodes: bare}, nil
	}

	// Last resort: scan every top-level key for something node-shaped.
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err == nil {
		for _, raw := range top {
			var nodes []models.Node
			if err := json.Unmarshal(raw, &nodes); err == nil && len(nodes) > 0 && nodes[0].Type != "" {
				return &models.Document{Nodes: nodes}, nil
			}
		}
	}

	return &models.Document{}, models.ErrUnrecognizedFormat
}
