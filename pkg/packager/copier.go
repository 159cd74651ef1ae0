package packager

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Directories never worth shipping: version control, caches, build output,
// virtual environments.
var skipDirs = map[string]struct{}{
	".git":               {},
	"__pycache__":        {},
	".github":            {},
	".pytest_cache":      {},
	".vscode":            {},
	"node_modules":       {},
	"dist":               {},
	"build":              {},
	".ipynb_checkpoints": {},
	"venv":               {},
	"env":                {},
	".env":               {},
	".venv":              {},
	".mypy_cache":        {},
	".ruff_cache":        {},
	"__MACOSX":           {},
}

// File patterns excluded from plugin copies: compiled artifacts, archives,
// media, OS metadata.
var skipFilePatterns = []string{
	"*.pyc", "*.pyo", "*.so", "*.egg", "*.whl", "*.zip", "*.tar.gz",
	"*.log", "*.db", "*.sqlite", "*.swp", "*~", "*.bak", "*.tmp",
	"*.pth", "*.onnx", ".DS_Store", "Thumbs.db", ".gitignore",
	".gitattributes", ".gitmodules", "*.png", "*.jpg", "*.jpeg",
	"*.webp", "*.gif", "*.mp4", "*.mp3", "*.avi", "*.mov",
	".env*", "*.o", "*.a", "*.dll", "*.exe",
}

// Text-like files ship regardless of size.
var keepExtensions = map[string]struct{}{
	".py":   {},
	".txt":  {},
	".md":   {},
	".json": {},
	".yaml": {},
	".yml":  {},
	".html": {},
	".js":   {},
	".css":  {},
}

const maxFileSize = 100 * 1024 * 1024 // 100 MiB

// copyTreeFiltered copies a plugin directory into the package tree, applying
// the skip filters. Per-file failures are collected and never abort the
// copy.
func copyTreeFiltered(src, dst string) (int, []string) {
	var (
		copied int
		errs   []string
	)

	walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, err))

			return nil
		}

		if d.IsDir() {
			if _, skip := skipDirs[d.Name()]; skip && path != src {
				return filepath.SkipDir
			}

			return nil
		}

		if skipFile(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, err))

			return nil
		}

		if info.Size() > maxFileSize {
			ext := strings.ToLower(filepath.Ext(d.Name()))
			if _, keep := keepExtensions[ext]; !keep {
				return nil
			}
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, err))

			return nil
		}

		if err := copyFile(path, filepath.Join(dst, rel)); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", path, err))

			return nil
		}

		copied++

		return nil
	})
	if walkErr != nil {
		errs = append(errs, fmt.Sprintf("%s: %v", src, walkErr))
	}

	return copied, errs
}

func skipFile(name string) bool {
	for _, pattern := range skipFilePatterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}

	return false
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()

		return fmt.Errorf("copying to %s: %w", dst, err)
	}

	return out.Close()
}

// hashFile returns the sha256 digest of a file, prefixed with the algorithm
// so the downloader knows how to verify it.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}
