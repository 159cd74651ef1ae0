package search

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/comfypack/pkg/log"
	"github.com/dukex/comfypack/pkg/models"
)

// Categories the installer sometimes files a model under instead of its own.
var alternateCategories = map[models.Category][]models.Category{
	models.CategoryCheckpoint: {models.CategoryLora, models.CategoryVAE},
	models.CategoryLora:       {models.CategoryCheckpoint, models.CategoryEmbedding},
	models.CategoryVAE:        {models.CategoryCheckpoint},
	models.CategoryEmbedding:  {models.CategoryLora},
	models.CategoryControlNet: {models.CategoryCheckpoint},
}

var guessedExtensions = []string{".safetensors", ".ckpt", ".pt"}

var knownExtensions = []string{".safetensors", ".ckpt", ".pt", ".pth", ".bin", ".onnx", ".msgpack"}

// strategy is one stage of the resolution cascade. Each strategy scans every
// configured directory before the cascade advances, so a shallow match in a
// high-priority directory always beats a deep one in a lower-priority
// directory.
type strategy struct {
	name string
	run  func(q *query) (string, bool)
}

// Resolver resolves model references against a PathSet. Resolution is
// read-only and deterministic: directory priority order first, lexical
// enumeration order within a directory.
type Resolver struct {
	logger *slog.Logger
	paths  PathSet

	cascade []strategy
}

func NewResolver(paths PathSet) *Resolver {
	r := &Resolver{
		logger: log.WithModule("resolver"),
		paths:  paths,
	}

	r.cascade = []strategy{
		{"exact-path", r.exactPath},
		{"subdir-exact", r.subdirExact},
		{"flat-name", r.flatName},
		{"subdir-fuzzy", r.subdirFuzzy},
		{"one-level", r.oneLevel},
		{"recursive-walk", r.recursiveWalk},
	}

	return r
}

type query struct {
	dirs     []string
	rawName  string
	subdir   string
	filename string
	variants []string
}

// Resolve returns the first path the cascade finds for a reference, or
// models.ErrNotFound. A miss is not an error condition for the run; callers
// surface it as an unresolved artifact.
func (r *Resolver) Resolve(cat models.Category, ref models.ModelReference) (string, error) {
	// Absolute references that exist short-circuit the cascade.
	if filepath.IsAbs(ref.RawName) {
		if info, err := os.Stat(ref.RawName); err == nil && !info.IsDir() {
			return ref.RawName, nil
		}
	}

	if path, stage, ok := r.runCascade(cat, ref); ok {
		r.logger.Debug("resolved", "name", ref.RawName, "category", cat, "stage", stage, "path", path)

		return path, nil
	}

	// Stage 7: retry the whole cascade against adjacent categories.
	for _, alt := range alternateCategories[cat] {
		if path, stage, ok := r.runCascade(alt, ref); ok {
			r.logger.Debug("resolved via alternate category",
				"name", ref.RawName, "category", alt, "stage", stage, "path", path)

			return path, nil
		}
	}

	return "", models.ErrNotFound
}

func (r *Resolver) runCascade(cat models.Category, ref models.ModelReference) (string, string, bool) {
	q := newQuery(r.paths[cat], ref.RawName)

	for _, stage := range r.cascade {
		if path, ok := stage.run(q); ok {
			return path, stage.name, true
		}
	}

	return "", "", false
}

func newQuery(dirs []string, rawName string) *query {
	// JSON-serialized Windows paths sometimes carry doubled backslashes.
	name := strings.ReplaceAll(rawName, `\\`, `\`)
	name = strings.ReplaceAll(name, `\`, "/")

	q := &query{
		dirs:     dirs,
		rawName:  name,
		filename: name,
	}

	if strings.Contains(name, "/") {
		q.subdir = filepath.Dir(name)
		q.filename = filepath.Base(name)
	}

	q.variants = filenameVariants(q.filename)

	return q
}

// filenameVariants covers case folding, space/underscore interchange, and
// extension guessing for references without a known model extension. An
// unrecognized extension is replaced by the guesses, not appended to. Guess
// order is .safetensors, .ckpt, .pt.
func filenameVariants(filename string) []string {
	seen := make(map[string]struct{})

	var variants []string

	add := func(v string) {
		if _, dup := seen[v]; !dup {
			seen[v] = struct{}{}
			variants = append(variants, v)
		}
	}

	add(filename)
	add(strings.ToLower(filename))
	add(strings.ReplaceAll(filename, " ", "_"))
	add(strings.ToLower(strings.ReplaceAll(filename, " ", "_")))
	add(strings.ReplaceAll(filename, "_", " "))
	add(strings.ToLower(strings.ReplaceAll(filename, "_", " ")))

	if !hasKnownExtension(filename) {
		stem := strings.TrimSuffix(filename, filepath.Ext(filename))
		for _, ext := range guessedExtensions {
			add(stem + ext)
		}
	}

	return variants
}

func hasKnownExtension(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range knownExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}

	return false
}

// Stage 1: exact relative path under each base directory.
func (r *Resolver) exactPath(q *query) (string, bool) {
	for _, dir := range q.dirs {
		if path, ok := fileExists(filepath.Join(dir, q.rawName)); ok {
			return path, true
		}
	}

	return "", false
}

// Stage 2: when the reference carries a subpath, the exact subdirectory with
// filename variants inside it.
func (r *Resolver) subdirExact(q *query) (string, bool) {
	if q.subdir == "" {
		return "", false
	}

	for _, dir := range q.dirs {
		target := filepath.Join(dir, q.subdir)
		if !dirExists(target) {
			continue
		}

		if path, ok := firstVariant(target, q.variants); ok {
			return path, true
		}
	}

	return "", false
}

// Stage 3: flattened filename variants directly under each base directory.
func (r *Resolver) flatName(q *query) (string, bool) {
	for _, dir := range q.dirs {
		if path, ok := firstVariant(dir, q.variants); ok {
			return path, true
		}
	}

	return "", false
}

// Stage 4: case-insensitive match on the subdirectory name, then filename
// variants inside it.
func (r *Resolver) subdirFuzzy(q *query) (string, bool) {
	if q.subdir == "" {
		return "", false
	}

	subdirLower := strings.ToLower(q.subdir)

	for _, dir := range q.dirs {
		for _, child := range sortedSubdirs(dir) {
			if strings.ToLower(child) != subdirLower {
				continue
			}

			if path, ok := firstVariant(filepath.Join(dir, child), q.variants); ok {
				return path, true
			}
		}
	}

	return "", false
}

// Stage 5: immediate child directories, tried for filename variants and then
// for the subpath nested one level deeper.
func (r *Resolver) oneLevel(q *query) (string, bool) {
	for _, dir := range q.dirs {
		for _, child := range sortedSubdirs(dir) {
			childPath := filepath.Join(dir, child)

			if path, ok := firstVariant(childPath, q.variants); ok {
				return path, true
			}

			if q.subdir != "" {
				nested := filepath.Join(childPath, q.subdir)
				if dirExists(nested) {
					if path, ok := firstVariant(nested, q.variants); ok {
						return path, true
					}
				}
			}
		}
	}

	return "", false
}

// Stage 6: unbounded recursive walk matching by exact or case-insensitive
// filename. With a subpath, a hit whose containing directory matches or
// contains the subpath segment is preferred over the first plain hit.
func (r *Resolver) recursiveWalk(q *query) (string, bool) {
	lowerVariants := make(map[string]struct{}, len(q.variants))
	for _, v := range q.variants {
		lowerVariants[strings.ToLower(v)] = struct{}{}
	}

	subdirBase := strings.ToLower(filepath.Base(q.subdir))

	for _, dir := range q.dirs {
		var fallback string

		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}

			if _, ok := lowerVariants[strings.ToLower(d.Name())]; !ok {
				return nil
			}

			if q.subdir == "" {
				fallback = path

				return filepath.SkipAll
			}

			parent := strings.ToLower(filepath.Base(filepath.Dir(path)))

			rel, relErr := filepath.Rel(dir, filepath.Dir(path))
			if relErr == nil &&
				(strings.Contains(strings.ToLower(rel), strings.ToLower(q.subdir)) || parent == subdirBase) {
				fallback = path

				return filepath.SkipAll
			}

			if fallback == "" {
				fallback = path
			}

			return nil
		})
		if err == nil && fallback != "" {
			return fallback, true
		}
	}

	return "", false
}

func firstVariant(dir string, variants []string) (string, bool) {
	for _, variant := range variants {
		if path, ok := fileExists(filepath.Join(dir, variant)); ok {
			return path, true
		}
	}

	return "", false
}

func fileExists(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}

	return path, true
}

func dirExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func sortedSubdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	// os.ReadDir returns entries sorted by name, keeping tie-breaks stable.
	var subdirs []string

	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, entry.Name())
		}
	}

	return subdirs
}
