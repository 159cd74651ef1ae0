// Package installorder computes the order plugin packages are installed in.
// Plugins may declare dependencies on other plugins in their metadata; the
// order is a topological sort of that graph with a stable alphabetical
// tie-break.
package installorder

import (
	"path"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/dukex/comfypack/pkg/catalog"
	"github.com/dukex/comfypack/pkg/log"
)

// Compute returns `custom_nodes/<name>` relative paths, dependencies before
// dependents. A cycle or a dependency on an uninstalled plugin falls back to
// plain alphabetical order with a warning.
func Compute(entries []*catalog.Entry) []string {
	logger := log.WithModule("installorder")

	installed := make(map[string]*catalog.Entry, len(entries))
	for _, entry := range entries {
		installed[strings.ToLower(entry.CanonicalName)] = entry
	}

	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	for _, entry := range entries {
		_ = g.AddVertex(entry.CanonicalName)
	}

	for _, entry := range entries {
		for _, dep := range entry.Requires {
			target, ok := installed[strings.ToLower(dep)]
			if !ok {
				logger.Warn("plugin requires a package that is not part of this run",
					"plugin", entry.CanonicalName, "requires", dep)

				continue
			}

			if err := g.AddEdge(target.CanonicalName, entry.CanonicalName); err != nil {
				logger.Warn("dependency cycle between plugins, falling back to alphabetical order",
					"plugin", entry.CanonicalName, "requires", dep)

				return alphabetical(entries)
			}
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	if err != nil {
		logger.Warn("topological sort failed, falling back to alphabetical order", "error", err)

		return alphabetical(entries)
	}

	paths := make([]string, 0, len(order))
	for _, name := range order {
		paths = append(paths, path.Join("custom_nodes", name))
	}

	return paths
}

func alphabetical(entries []*catalog.Entry) []string {
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, path.Join("custom_nodes", entry.CanonicalName))
	}

	sort.Strings(paths)

	return paths
}
