package packager

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/dukex/comfypack/pkg/catalog"
	"github.com/dukex/comfypack/pkg/installorder"
	"github.com/dukex/comfypack/pkg/models"
)

// manifestSchema is the contract the external downloader and archiver
// consume; the manifest is checked against it before the atomic write.
const manifestSchema = `{
  "type": "object",
  "required": ["package_id", "name", "version", "included_models"],
  "properties": {
    "package_id": {"type": "string"},
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "version": {"type": "string", "minLength": 1},
    "created_at": {"type": "string"},
    "installation_order": {"type": "array", "items": {"type": "string"}},
    "dependencies": {"type": "array", "items": {"type": "string"}},
    "included_models": {
      "type": "object",
      "additionalProperties": {"type": "array", "items": {"type": "string"}}
    },
    "external_models": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "type", "url", "size"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"type": "string"},
          "path": {"type": "string"},
          "url": {"type": "string", "format": "uri"},
          "hash": {"type": "string"},
          "size": {"type": "integer", "minimum": 0}
        }
      }
    }
  }
}`

func (p *Packager) buildManifest(plugins []*catalog.Entry, included map[models.Category][]string, deferred []models.DeferredModel) *models.Manifest {
	description := p.opts.Description
	if description == "" {
		description = fmt.Sprintf("Package created from %s", filepath.Base(p.opts.WorkflowPath))
	}

	return &models.Manifest{
		PackageID:              uuid.New().String(),
		Name:                   p.opts.Name,
		Description:            description,
		Version:                "1.0.0",
		CreatedAt:              time.Now().UTC(),
		PluginInstallOrder:     installorder.Compute(plugins),
		AggregatedDependencies: p.aggregatedDeps,
		IncludedModels:         included,
		DeferredModels:         deferred,
	}
}

// writeManifest validates the manifest and writes it atomically: the JSON
// lands in a temp file in the package directory and is renamed into place,
// so a crash mid-assembly never leaves a manifest describing artifacts that
// were not copied.
func (p *Packager) writeManifest(manifest *models.Manifest) (string, error) {
	if err := p.validate.Struct(manifest); err != nil {
		return "", fmt.Errorf("manifest validation: %w", err)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling manifest: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(manifestSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return "", fmt.Errorf("manifest schema check: %w", err)
	}

	if !result.Valid() {
		return "", fmt.Errorf("manifest schema check: %v", result.Errors())
	}

	tmp, err := os.CreateTemp(p.packageDir, "config-*.json")
	if err != nil {
		return "", fmt.Errorf("creating manifest temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return "", fmt.Errorf("writing manifest: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return "", fmt.Errorf("syncing manifest: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return "", fmt.Errorf("closing manifest: %w", err)
	}

	path := filepath.Join(p.packageDir, "config.json")
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())

		return "", fmt.Errorf("renaming manifest into place: %w", err)
	}

	return path, nil
}

func (p *Packager) writeReadme(manifest *models.Manifest) error {
	var b []byte

	add := func(format string, args ...any) {
		b = append(b, fmt.Sprintf(format, args...)...)
	}

	add("# %s\n\n%s\n\n", manifest.Name, manifest.Description)

	if len(manifest.PluginInstallOrder) > 0 {
		add("## Custom Nodes\n\n")

		for _, plugin := range manifest.PluginInstallOrder {
			add("- %s\n", filepath.Base(plugin))
		}

		add("\n")
	}

	wroteHeader := false

	for _, cat := range models.Categories() {
		names := manifest.IncludedModels[cat]
		if len(names) == 0 {
			continue
		}

		if !wroteHeader {
			add("## Included Models\n\n")

			wroteHeader = true
		}

		add("### %s\n\n", cat)

		for _, name := range names {
			add("- %s\n", name)
		}

		add("\n")
	}

	if len(manifest.DeferredModels) > 0 {
		add("## External Models (Downloaded During Installation)\n\n")

		for _, model := range manifest.DeferredModels {
			add("- %s (%s)\n", model.Name, model.Category)
		}

		add("\n")
	}

	return os.WriteFile(filepath.Join(p.packageDir, "README.md"), b, 0o644)
}
