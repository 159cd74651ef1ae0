// Package models defines the core domain models for workflow dependency
// packaging: the decoded workflow document, the references harvested from it,
// and the manifest the packager emits.
package models

// Node is one element of a workflow graph. Properties are free-form; the
// parameter values keep their original ordering because position carries
// meaning for multi-slot loader nodes.
type Node struct {
	Type            string         `json:"type"`
	Properties      map[string]any `json:"properties,omitempty"`
	ParameterValues []any          `json:"widgets_values,omitempty"`
}

// Document is a decoded workflow graph. It is read-only input; the packager
// never mutates it.
type Document struct {
	Nodes []Node `json:"nodes"`
}

// PluginReference is a candidate plugin identifier harvested from a node.
// Many raw identifiers may map to the same installed plugin.
type PluginReference struct {
	RawID string `json:"raw_id"`
}

// ModelReference is a model filename (possibly with a relative subpath)
// harvested from a node's parameter values. SourceNodeType and the position
// hints feed positional classification.
type ModelReference struct {
	RawName        string `json:"raw_name"`
	SourceNodeType string `json:"source_node_type,omitempty"`
	PositionHint   int    `json:"position_hint"`
	SiblingCount   int    `json:"sibling_count"`
}

// ResolvedArtifact pairs a model reference with the category it was filed
// under and the path the resolver found for it. An empty Path means the
// reference stayed unresolved after the full cascade.
type ResolvedArtifact struct {
	Reference ModelReference `json:"reference"`
	Category  Category       `json:"category"`
	Path      string         `json:"path,omitempty"`
	SizeBytes int64          `json:"size_bytes,omitempty"`
}
