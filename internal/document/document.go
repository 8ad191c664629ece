package document

import (
	"fmt"

	"go.yaml.in/yaml/v4"
)

// Document is a parsed OpenAPI or Swagger document kept as a yaml.Node
// tree. The node tree preserves mapping order from the source file, which
// decoding into plain maps would lose. JSON input parses through the same
// path since YAML is a superset.
type Document struct {
	root *yaml.Node
}

// Parse decodes raw YAML or JSON bytes into a Document.
func Parse(data []byte) (*Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}

	root := &node
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, fmt.Errorf("document has no content")
		}
		root = root.Content[0]
	}
	if root.Kind == 0 {
		return nil, fmt.Errorf("document has no content")
	}

	return &Document{root: root}, nil
}

// Root returns the document's top-level node.
func (d *Document) Root() *yaml.Node {
	return d.root
}

// Lookup walks nested mappings key by key and reports whether every
// segment was present. A miss returns ok=false; nothing is synthesized.
func (d *Document) Lookup(path ...string) (*yaml.Node, bool) {
	node := d.root
	for _, key := range path {
		next, ok := MapGet(node, key)
		if !ok {
			return nil, false
		}
		node = next
	}
	return node, true
}

// Entry is one key/value pair of a mapping node.
type Entry struct {
	Key   string
	Value *yaml.Node
}

// Entries returns a mapping node's pairs in source order. Non-mapping
// nodes yield nil.
func Entries(node *yaml.Node) []Entry {
	node = resolve(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	entries := make([]Entry, 0, len(node.Content)/2)
	for i := 0; i < len(node.Content)-1; i += 2 {
		entries = append(entries, Entry{
			Key:   node.Content[i].Value,
			Value: node.Content[i+1],
		})
	}
	return entries
}

// MapGet returns the value for key within a mapping node.
func MapGet(node *yaml.Node, key string) (*yaml.Node, bool) {
	node = resolve(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil, false
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1], true
		}
	}
	return nil, false
}

// Items returns a sequence node's elements, nil for anything else.
func Items(node *yaml.Node) []*yaml.Node {
	node = resolve(node)
	if node == nil || node.Kind != yaml.SequenceNode {
		return nil
	}
	return node.Content
}

// StringValue returns the node's value when it is a string scalar.
// Unquoted numbers and booleans resolve to other tags and report false,
// so a YAML `2.0` is not a string while `"2.0"` is.
func StringValue(node *yaml.Node) (string, bool) {
	node = resolve(node)
	if node == nil || node.Kind != yaml.ScalarNode || node.Tag != "!!str" {
		return "", false
	}
	return node.Value, true
}

// IsNull reports whether the node is an explicit null scalar.
func IsNull(node *yaml.Node) bool {
	node = resolve(node)
	return node == nil || (node.Kind == yaml.ScalarNode && node.Tag == "!!null")
}

// DecodeAny decodes a subtree into plain Go values (map[string]any,
// []any, scalars) for callers that hand the data onward verbatim.
func DecodeAny(node *yaml.Node) (any, error) {
	node = resolve(node)
	if node == nil {
		return nil, nil
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func resolve(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}
