package loader

import "fmt"

// UnsupportedFormatError reports a spec file whose extension is neither
// YAML nor JSON.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q: %s", e.Ext, e.Path)
}

// ParseError reports a spec file that is not well-formed YAML or JSON.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// InvalidSchemaError reports a document that parsed but is neither an
// OpenAPI 3.x nor a Swagger 2.0 schema.
type InvalidSchemaError struct {
	Path string
}

func (e *InvalidSchemaError) Error() string {
	return fmt.Sprintf("not a valid OpenAPI schema: %s", e.Path)
}
