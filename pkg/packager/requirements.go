package packager

import (
	"bufio"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// requirementsCollector aggregates every requirements.txt found under the
// copied plugins into one deduplicated, sorted dependency list.
type requirementsCollector struct {
	logger       *slog.Logger
	requirements map[string]struct{}
	processed    map[string]struct{}
	warnings     []string
}

func newRequirementsCollector(logger *slog.Logger) *requirementsCollector {
	return &requirementsCollector{
		logger:       logger,
		requirements: make(map[string]struct{}),
		processed:    make(map[string]struct{}),
	}
}

func (c *requirementsCollector) processDir(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}

		if strings.EqualFold(d.Name(), "requirements.txt") {
			c.processFile(path)
		}

		return nil
	})
}

func (c *requirementsCollector) processFile(path string) {
	if _, done := c.processed[path]; done {
		return
	}

	c.processed[path] = struct{}{}

	f, err := os.Open(path)
	if err != nil {
		c.warnings = append(c.warnings, fmt.Sprintf("requirements file %s: %v", path, err))

		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Line continuations join with the following line.
		for strings.HasSuffix(line, `\`) && scanner.Scan() {
			line = strings.TrimSuffix(line, `\`) + strings.TrimSpace(scanner.Text())
		}

		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		if line != "" {
			c.requirements[line] = struct{}{}
		}
	}

	if err := scanner.Err(); err != nil {
		c.warnings = append(c.warnings, fmt.Sprintf("requirements file %s: %v", path, err))
	}
}

func (c *requirementsCollector) list() []string {
	deps := make([]string, 0, len(c.requirements))
	for dep := range c.requirements {
		deps = append(deps, dep)
	}

	sort.Strings(deps)

	return deps
}
