// Package search locates model files on disk. A PathSet maps each category
// to a priority-ordered list of base directories; the Resolver runs a cascade
// of increasingly permissive strategies over them.
package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dukex/comfypack/pkg/log"
	"github.com/dukex/comfypack/pkg/models"
)

// PathSet maps categories to base directories ordered by priority. Explicit
// overrides are inserted before defaults.
type PathSet map[models.Category][]string

// NewPathSet builds the default per-category directories under a ComfyUI
// root's models/ tree.
func NewPathSet(comfyRoot string) PathSet {
	set := make(PathSet)
	for _, cat := range models.Categories() {
		set[cat] = []string{filepath.Join(comfyRoot, "models", cat.DirName())}
	}

	return set
}

// Add appends a directory to a category's search list.
func (p PathSet) Add(cat models.Category, dir string) {
	p[cat] = append(p[cat], dir)
}

// Prepend inserts a directory ahead of a category's existing search list.
func (p PathSet) Prepend(cat models.Category, dir string) {
	p[cat] = append([]string{dir}, p[cat]...)
}

// extraPathsConfig mirrors the extra_model_paths.yaml layout: one section per
// UI, each with a base_path, an optional is_default flag, and per-category
// relative paths (possibly multi-line).
type extraPathsConfig map[string]map[string]any

// LoadExtraPaths merges an extra_model_paths.yaml file into the set.
// Directories from a section flagged is_default take priority over defaults;
// everything else is appended.
func (p PathSet) LoadExtraPaths(path string) error {
	logger := log.WithModule("search")

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var config extraPathsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	for section, entries := range config {
		basePath, ok := entries["base_path"].(string)
		if !ok {
			logger.Warn("extra paths section missing base_path", "section", section)

			continue
		}

		basePath = expandHome(basePath)
		if !filepath.IsAbs(basePath) {
			basePath = filepath.Join(filepath.Dir(path), basePath)
		}

		isDefault, _ := entries["is_default"].(bool)

		p.mergeSection(logger, entries, basePath, isDefault)
	}

	return nil
}

func (p PathSet) mergeSection(logger *slog.Logger, entries map[string]any, basePath string, isDefault bool) {
	for key, value := range entries {
		if key == "base_path" || key == "is_default" {
			continue
		}

		raw, ok := value.(string)
		if !ok {
			continue
		}

		cat := models.Category(strings.ToLower(key))

		for _, line := range strings.Split(raw, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			dir := line
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(basePath, dir)
			}

			logger.Debug("adding search path", "category", cat, "dir", dir)

			if isDefault {
				p.Prepend(cat, dir)
			} else {
				p.Add(cat, dir)
			}
		}
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
