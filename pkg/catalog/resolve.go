package catalog

import (
	"sort"
	"strings"
)

// Resolve maps raw plugin identifiers to catalog entries. Exact alias lookup
// runs first; identifiers that miss fall through to fuzzy matching
// (substring containment either direction, separator-normalized equality,
// last-path-segment equality). Identifiers nothing matches are dropped, not
// errored.
func (c *Catalog) Resolve(ids []string) ([]*Entry, []string) {
	resolved := make(map[string]*Entry)

	var dropped []string

	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	for _, id := range sorted {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}

		if entry, ok := c.Lookup(id); ok {
			resolved[entry.CanonicalName] = entry

			continue
		}

		if entry, ok := c.fuzzyLookup(id); ok {
			resolved[entry.CanonicalName] = entry

			continue
		}

		dropped = append(dropped, id)
	}

	entries := make([]*Entry, 0, len(resolved))
	for _, entry := range resolved {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CanonicalName < entries[j].CanonicalName
	})

	return entries, dropped
}

func (c *Catalog) fuzzyLookup(id string) (*Entry, bool) {
	aliases := make([]string, 0, len(c.aliases))
	for alias := range c.aliases {
		aliases = append(aliases, alias)
	}

	sort.Strings(aliases)

	normalizedID := normalizeSeparators(id)
	lastSegmentID := lastSegment(id)

	for _, alias := range aliases {
		if fuzzyMatch(id, alias, normalizedID, lastSegmentID) {
			return c.entries[c.aliases[alias][0].canonical], true
		}
	}

	return nil, false
}

func fuzzyMatch(id, alias, normalizedID, lastSegmentID string) bool {
	if strings.Contains(alias, id) || strings.Contains(id, alias) {
		return true
	}

	if normalizedID == normalizeSeparators(alias) {
		return true
	}

	return lastSegmentID == lastSegment(alias)
}

func normalizeSeparators(s string) string {
	return strings.ReplaceAll(s, "-", "_")
}

func lastSegment(s string) string {
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		return s[idx+1:]
	}

	return s
}
