package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kolah/portico/internal/document"
)

// ParseFile reads and parses one specification file. Failures are typed
// so a caller can report them per API and move on: unsupported
// extensions, malformed content, and well-formed documents that are not
// OpenAPI 3.x or Swagger 2.0 each get their own error.
func ParseFile(path string) (*document.Document, error) {
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, &UnsupportedFormatError{Path: path, Ext: ext}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}

	doc, err := document.Parse(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	if !IsSupportedSchema(doc) {
		return nil, &InvalidSchemaError{Path: path}
	}

	return doc, nil
}

// IsSupportedSchema reports whether a parsed document is an OpenAPI 3.x
// or Swagger 2.0 schema. The version fields must be strings: a YAML
// document with `swagger: 2.0` carries a float and is rejected.
func IsSupportedSchema(doc *document.Document) bool {
	if doc == nil {
		return false
	}

	if node, ok := doc.Lookup("openapi"); ok {
		if version, ok := document.StringValue(node); ok && strings.HasPrefix(version, "3.") {
			return true
		}
	}

	if node, ok := doc.Lookup("swagger"); ok {
		if version, ok := document.StringValue(node); ok && version == "2.0" {
			return true
		}
	}

	return false
}
