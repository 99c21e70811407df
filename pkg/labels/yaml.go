package labels

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/datanorm/datanorm/pkg/frame"
)

// Reserved metadata keys of the metadata-prefixed vocabulary form.
const (
	KeyCodeType       = "code_type"
	KeyOrient         = "orient"
	KeyColumns        = "columns"
	KeyOrdered        = "ordered"
	KeyParent         = "parent"
	KeyParentFile     = "parent_file"
	KeyHierarchyLevel = "hierarchy_level"
	KeyData           = "data"
)

var reservedKeys = map[string]bool{
	KeyCodeType:       true,
	KeyOrient:         true,
	KeyColumns:        true,
	KeyOrdered:        true,
	KeyParent:         true,
	KeyParentFile:     true,
	KeyHierarchyLevel: true,
	KeyData:           true,
}

// LoadOptions parametrize definition-file loading.
type LoadOptions struct {
	// Name overrides the map name (defaults to the definition's own name
	// handling in Options).
	Name string

	// SkipAttrs drops non-data metadata keys instead of recording them in
	// the map's Attrs.
	SkipAttrs bool
}

// FromYAML reads one vocabulary definition document from a file. The
// document may use the flat form (every top-level key is a code) or the
// metadata-prefixed form (reserved keys plus a data block); see FromNode
// for the disambiguation rule.
func FromYAML(path string, opts LoadOptions) (*LabelMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return FromBytes(raw, opts)
}

// FromBytes parses a vocabulary definition document from YAML bytes.
func FromBytes(raw []byte, opts LoadOptions) (*LabelMap, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing vocabulary definition: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty vocabulary definition")
	}
	return FromNode(doc.Content[0], opts)
}

// FromNode builds a LabelMap from a parsed YAML mapping node, preserving
// the document's code order. Disambiguation: if the node's key set is a
// subset of the reserved metadata keys and contains "data", the node is
// metadata-prefixed; otherwise it is flat. A mapping with an unknown key
// next to reserved ones therefore falls through to flat parsing, and its
// misuse surfaces later as unknown-code lookups.
func FromNode(node *yaml.Node, opts LoadOptions) (*LabelMap, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("vocabulary definition must be a mapping, got %v", node.Kind)
	}

	keys := mappingKeys(node)
	if isMetadataForm(keys) {
		return fromMetadataNode(node, opts)
	}
	return fromFlatNode(node, Options{Name: opts.Name})
}

func isMetadataForm(keys []string) bool {
	hasData := false
	for _, k := range keys {
		if !reservedKeys[k] {
			return false
		}
		if k == KeyData {
			hasData = true
		}
	}
	return hasData
}

func mappingKeys(node *yaml.Node) []string {
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	return keys
}

func fromMetadataNode(node *yaml.Node, opts LoadOptions) (*LabelMap, error) {
	var (
		dataNode *yaml.Node
		mapOpts  = Options{Name: opts.Name}
	)
	if !opts.SkipAttrs {
		mapOpts.Attrs = make(map[string]any)
	}

	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		if key == KeyData {
			dataNode = val
			continue
		}
		if mapOpts.Attrs != nil {
			var v any
			if err := val.Decode(&v); err != nil {
				return nil, fmt.Errorf("metadata key %q: %w", key, err)
			}
			mapOpts.Attrs[key] = v
		}
		switch key {
		case KeyOrient:
			mapOpts.Orient = Orient(val.Value)
		case KeyCodeType:
			mapOpts.CodeDType = frame.DType(val.Value)
		case KeyColumns:
			var cols []string
			if err := val.Decode(&cols); err != nil {
				return nil, fmt.Errorf("metadata key %q: %w", key, err)
			}
			mapOpts.Columns = cols
		}
	}
	if dataNode == nil || dataNode.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("metadata form requires a mapping under %q", KeyData)
	}
	return fromFlatNode(dataNode, mapOpts)
}

// fromFlatNode builds a map from a flat definition mapping, keeping the
// document's key order.
func fromFlatNode(node *yaml.Node, opts Options) (*LabelMap, error) {
	if opts.Orient == ByColumn {
		// Column orientation has no meaningful document order for codes,
		// so it round-trips through the unordered constructor.
		var def map[string]map[string]any
		if err := node.Decode(&def); err != nil {
			return nil, fmt.Errorf("decoding vocabulary data: %w", err)
		}
		return New(def, opts)
	}

	codes := make([]string, 0, len(node.Content)/2)
	def := make(map[string]map[string]any, len(node.Content)/2)
	for i := 0; i < len(node.Content); i += 2 {
		code := node.Content[i].Value
		var rec map[string]any
		if err := node.Content[i+1].Decode(&rec); err != nil {
			return nil, fmt.Errorf("code %q: %w", code, err)
		}
		if _, dup := def[code]; dup {
			return nil, fmt.Errorf("duplicate code %q", code)
		}
		codes = append(codes, code)
		def[code] = rec
	}
	return build(codes, def, opts)
}
