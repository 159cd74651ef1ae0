package workflow

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/dukex/comfypack/pkg/log"
	"github.com/dukex/comfypack/pkg/models"
)

// Property keys plugins use to declare the package that provides a node.
var pluginIDKeys = []string{"cnr_id", "aux_id", "Node name for S&R", "custom_node_id", "node_id"}

// Node types that belong to the core runtime and never indicate a plugin.
var builtinNodeTypes = map[string]struct{}{
	"note":      {},
	"comment":   {},
	"reroute":   {},
	"primitive": {},
	"output":    {},
	"input":     {},
}

// Extensions a parameter value must carry to count as a model reference.
var modelExtensions = []string{".safetensors", ".ckpt", ".pt", ".pth", ".bin", ".onnx", ".msgpack"}

// Literal values that look like filenames to the length check but never are.
var valueDenylist = map[string]struct{}{
	"randomize": {},
	"true":      {},
	"false":     {},
	"enable":    {},
	"disable":   {},
	"none":      {},
}

const minReferenceLength = 5

// Extractor walks a workflow document and harvests plugin identifier
// candidates and model references. It is deliberately over-generous on
// plugin candidates: false positives cost nothing because only catalog
// membership turns a candidate into a resolved plugin.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor() *Extractor {
	return &Extractor{logger: log.WithModule("extractor")}
}

// Extract returns the plugin identifier candidates keyed by raw ID, the model
// references in document order, and any format warnings.
func (e *Extractor) Extract(doc *models.Document) (map[string]models.PluginReference, []models.ModelReference, []string) {
	plugins := make(map[string]models.PluginReference)

	var (
		refs     []models.ModelReference
		warnings []string
	)

	if doc == nil || len(doc.Nodes) == 0 {
		warnings = append(warnings, "workflow document contains no nodes")

		return plugins, refs, warnings
	}

	nodeTypes := make(map[string]struct{})

	for _, node := range doc.Nodes {
		if node.Type != "" {
			nodeTypes[strings.ToLower(node.Type)] = struct{}{}
		}

		e.harvestPluginIDs(node, plugins)
		refs = append(refs, e.harvestModelReferences(node)...)
	}

	e.harvestNodeTypeCandidates(nodeTypes, plugins)

	e.logger.Debug("extraction complete",
		"plugin_candidates", len(plugins),
		"model_references", len(refs))

	return plugins, refs, warnings
}

func (e *Extractor) harvestPluginIDs(node models.Node, out map[string]models.PluginReference) {
	for _, key := range pluginIDKeys {
		value, ok := node.Properties[key]
		if !ok {
			continue
		}

		id, ok := value.(string)
		if !ok || strings.TrimSpace(id) == "" {
			continue
		}

		id = strings.ToLower(strings.TrimSpace(id))
		out[id] = models.PluginReference{RawID: id}
	}
}

func (e *Extractor) harvestModelReferences(node models.Node) []models.ModelReference {
	var refs []models.ModelReference

	for idx, value := range node.ParameterValues {
		name, ok := value.(string)
		if !ok || name == "" {
			continue
		}

		if _, denied := valueDenylist[strings.ToLower(name)]; denied {
			continue
		}

		if len(name) < minReferenceLength {
			continue
		}

		if !hasModelExtension(name) {
			continue
		}

		refs = append(refs, models.ModelReference{
			RawName:        name,
			SourceNodeType: node.Type,
			PositionHint:   idx,
			SiblingCount:   len(node.ParameterValues),
		})
	}

	return refs
}

// harvestNodeTypeCandidates registers every non-builtin node type, plus its
// prefix decompositions, as plugin identifier candidates. This recovers
// plugins that never self-declare an identifier in node properties.
func (e *Extractor) harvestNodeTypeCandidates(nodeTypes map[string]struct{}, out map[string]models.PluginReference) {
	sorted := make([]string, 0, len(nodeTypes))
	for nodeType := range nodeTypes {
		sorted = append(sorted, nodeType)
	}

	sort.Strings(sorted)

	for _, nodeType := range sorted {
		if _, builtin := builtinNodeTypes[nodeType]; builtin {
			continue
		}

		add := func(id string) {
			out[id] = models.PluginReference{RawID: id}
		}

		add(nodeType)

		parts := strings.Split(nodeType, "_")
		if len(parts) > 1 {
			add(parts[0])
			add(parts[0] + "/" + nodeType)

			if len(parts) >= 3 {
				prefix := parts[0] + "_" + parts[1]
				add(prefix)
				add(prefix + "/" + nodeType)
			}
		}
	}
}

func hasModelExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range modelExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}

	return false
}
