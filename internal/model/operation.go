package model

type Operation struct {
	Path        string
	Method      Method
	OperationID string
	Summary     string
	Description string
	Parameters  []Parameter
	RequestBody any
	Responses   any
	Security    []any
}

type Method string

const (
	MethodGet     Method = "get"
	MethodPost    Method = "post"
	MethodPut     Method = "put"
	MethodDelete  Method = "delete"
	MethodPatch   Method = "patch"
	MethodOptions Method = "options"
	MethodHead    Method = "head"
)

// operationMethods lists the path-item keys that describe operations.
// Anything else at the path-item level (parameters, summary, vendor
// extensions) is not an operation.
var operationMethods = map[Method]bool{
	MethodGet:     true,
	MethodPost:    true,
	MethodPut:     true,
	MethodDelete:  true,
	MethodPatch:   true,
	MethodOptions: true,
	MethodHead:    true,
}

// IsOperationMethod reports whether a path-item key names an HTTP
// operation.
func IsOperationMethod(key string) bool {
	return operationMethods[Method(key)]
}

// Parameter is a resolved, concrete parameter object kept as decoded
// document data, so callers see exactly what the spec author wrote.
type Parameter map[string]any

func (p Parameter) Name() string {
	s, _ := p["name"].(string)
	return s
}

func (p Parameter) In() string {
	s, _ := p["in"].(string)
	return s
}

func (p Parameter) Required() bool {
	b, _ := p["required"].(bool)
	return b
}

func (p Parameter) Description() string {
	s, _ := p["description"].(string)
	return s
}

func (p Parameter) Schema() any {
	return p["schema"]
}
