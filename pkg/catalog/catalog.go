// Package catalog scans an installed-plugins directory and builds an index
// from every identifier a workflow might use back to the plugin that provides
// it. The index is deliberately over-generous: folder names, metadata
// declarations, source-code patterns, and naming-convention permutations are
// all registered, each with a confidence rank so ambiguous aliases resolve by
// priority instead of silent last-write-wins.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dukex/comfypack/pkg/log"
	"github.com/dukex/comfypack/pkg/models"
)

// Confidence ranks how an alias was learned. Lower is stronger.
type Confidence int

const (
	ConfidenceFolder Confidence = iota
	ConfidenceMetadata
	ConfidenceSource
	ConfidencePermutation
)

// Entry describes one installed plugin.
type Entry struct {
	CanonicalName string
	InstallPath   string
	AkaIDs        []string
	Requires      []string
}

type candidate struct {
	canonical  string
	confidence Confidence
}

// Catalog is the identifier index built once per run. Immutable afterward.
type Catalog struct {
	logger  *slog.Logger
	entries map[string]*Entry      // canonical name -> entry
	aliases map[string][]candidate // alias -> candidates ordered by confidence
}

var metadataFiles = []string{"node_info.json", "manifest.json", "config.json", "package.json"}

var yamlMetadataFiles = []string{"plugin.yaml", "comfypack.yaml"}

var metadataIDKeys = []string{"id", "identifier", "name", "package_name"}

// Identifier-declaration patterns found in plugin source files.
var sourceIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`NODE_CLASS_MAPPINGS\s*\[\s*['"]([^'"]+)['"]\s*\]`),
	regexp.MustCompile(`cnr_id["\s']+:\s*["']([^"']+)["']`),
	regexp.MustCompile(`aux_id["\s']+:\s*["']([^"']+)["']`),
	regexp.MustCompile(`id_mapping\s*=\s*['"]([\w\d_\-/]+)['"]`),
	regexp.MustCompile(`ID\s*=\s*['"]([\w\d_\-/]+)['"]`),
	regexp.MustCompile(`class\s+([\w\d_]+)\s*\([\w\d_.]+Node\s*\)`),
	regexp.MustCompile(`register_node\s*\(\s*['"]([\w\d_\-/]+)['"]`),
}

var (
	permutationPrefixes = []string{"", "comfyui-", "comfyui_", "sd-", "sd_"}
	permutationSuffixes = []string{"", "-nodes", "_nodes", "-comfyui", "_comfyui"}
)

// Build scans the installed-plugins root once. A root that does not exist
// yields an empty catalog, so installations without custom nodes still
// package their models; an existing but unreadable root is a fatal input
// error. Anything unreadable below the root is skipped.
func Build(root string) (*Catalog, error) {
	c := &Catalog{
		logger:  log.WithModule("catalog"),
		entries: make(map[string]*Entry),
		aliases: make(map[string][]candidate),
	}

	dirEntries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("plugins directory missing, catalog is empty", "root", root)

			return c, nil
		}

		return nil, fmt.Errorf("%w: reading plugins directory %s: %w", models.ErrFatalInput, root, err)
	}

	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() {
			continue
		}

		c.indexPlugin(dirEntry.Name(), filepath.Join(root, dirEntry.Name()))
	}

	c.logger.Debug("catalog built", "plugins", len(c.entries), "aliases", len(c.aliases))

	return c, nil
}

func (c *Catalog) indexPlugin(folder, installPath string) {
	entry := &Entry{CanonicalName: folder, InstallPath: installPath}
	c.entries[folder] = entry

	folderLower := strings.ToLower(folder)
	c.register(folderLower, folder, ConfidenceFolder)

	c.indexMetadata(entry, installPath)
	c.indexSource(folder, folderLower, installPath)
	c.indexPermutations(folder, folderLower)
}

func (c *Catalog) indexMetadata(entry *Entry, installPath string) {
	for _, name := range metadataFiles {
		data, err := os.ReadFile(filepath.Join(installPath, name))
		if err != nil {
			continue
		}

		var meta map[string]any
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		c.registerMetadataIDs(entry, meta)
	}

	for _, name := range yamlMetadataFiles {
		data, err := os.ReadFile(filepath.Join(installPath, name))
		if err != nil {
			continue
		}

		var meta map[string]any
		if err := yaml.Unmarshal(data, &meta); err != nil {
			continue
		}

		c.registerMetadataIDs(entry, meta)
	}
}

func (c *Catalog) registerMetadataIDs(entry *Entry, meta map[string]any) {
	for _, key := range metadataIDKeys {
		if id, ok := meta[key].(string); ok && id != "" {
			c.register(strings.ToLower(id), entry.CanonicalName, ConfidenceMetadata)
		}
	}

	if requires, ok := meta["requires"].([]any); ok {
		for _, r := range requires {
			if dep, ok := r.(string); ok && dep != "" {
				entry.Requires = append(entry.Requires, dep)
			}
		}
	}
}

func (c *Catalog) indexSource(folder, folderLower, installPath string) {
	_ = filepath.WalkDir(installPath, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		content := string(data)
		for _, pattern := range sourceIDPatterns {
			for _, match := range pattern.FindAllStringSubmatch(content, -1) {
				id := strings.ToLower(match[1])
				c.register(id, folder, ConfidenceSource)

				if !strings.Contains(id, "/") {
					c.register(folderLower+"/"+id, folder, ConfidenceSource)
				}
			}
		}

		return nil
	})
}

// indexPermutations registers naming-convention variants of the folder name,
// including the `unknown/<variant>` form unqualified GitHub-style owner/repo
// references collapse to.
func (c *Catalog) indexPermutations(folder, folderLower string) {
	for _, prefix := range permutationPrefixes {
		for _, suffix := range permutationSuffixes {
			variant := prefix + folderLower + suffix
			if variant != folderLower {
				c.register(variant, folder, ConfidencePermutation)
			}

			c.register("unknown/"+variant, folder, ConfidencePermutation)
		}
	}
}

func (c *Catalog) register(alias, canonical string, conf Confidence) {
	for _, cand := range c.aliases[alias] {
		if cand.canonical == canonical {
			return
		}
	}

	cands := append(c.aliases[alias], candidate{canonical: canonical, confidence: conf})
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].confidence < cands[j].confidence
	})
	c.aliases[alias] = cands

	if entry := c.entries[canonical]; entry != nil {
		entry.AkaIDs = append(entry.AkaIDs, alias)
	}
}

// Lookup returns the highest-confidence plugin for an alias.
func (c *Catalog) Lookup(alias string) (*Entry, bool) {
	cands := c.aliases[strings.ToLower(alias)]
	if len(cands) == 0 {
		return nil, false
	}

	return c.entries[cands[0].canonical], true
}

// Alternatives returns the lower-confidence plugins an alias also matched,
// for diagnostics.
func (c *Catalog) Alternatives(alias string) []*Entry {
	cands := c.aliases[strings.ToLower(alias)]
	if len(cands) <= 1 {
		return nil
	}

	alts := make([]*Entry, 0, len(cands)-1)
	for _, cand := range cands[1:] {
		alts = append(alts, c.entries[cand.canonical])
	}

	return alts
}

// Entries returns every catalog entry sorted by canonical name.
func (c *Catalog) Entries() []*Entry {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}

	sort.Strings(names)

	entries := make([]*Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, c.entries[name])
	}

	return entries
}
