package loader

import (
	"strings"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v4"

	"github.com/kolah/portico/internal/document"
	"github.com/kolah/portico/internal/model"
)

// Operations walks the document's path table and emits every HTTP
// operation in document order. Path-item keys outside the HTTP method
// set (parameters, summary, extensions) are skipped.
func Operations(doc *document.Document, logger *zap.Logger) []model.Operation {
	if logger == nil {
		logger = zap.NewNop()
	}

	paths, ok := doc.Lookup("paths")
	if !ok {
		return nil
	}

	globalSecurity := securityRequirements(doc.Root())

	var ops []model.Operation
	for _, path := range document.Entries(paths) {
		for _, item := range document.Entries(path.Value) {
			if !model.IsOperationMethod(item.Key) {
				continue
			}
			ops = append(ops, buildOperation(doc, path.Key, model.Method(item.Key), item.Value, globalSecurity, logger))
		}
	}
	return ops
}

func buildOperation(doc *document.Document, path string, method model.Method, node *yaml.Node, globalSecurity []any, logger *zap.Logger) model.Operation {
	op := model.Operation{
		Path:        path,
		Method:      method,
		OperationID: stringField(node, "operationId"),
		Summary:     stringField(node, "summary"),
		Description: stringField(node, "description"),
	}

	if op.OperationID == "" {
		op.OperationID = operationIDFromPath(path)
	}

	if params, ok := document.MapGet(node, "parameters"); ok {
		op.Parameters = ResolveParameterRefs(params, doc, logger)
	}

	if body, ok := document.MapGet(node, "requestBody"); ok {
		if v, err := document.DecodeAny(body); err == nil {
			op.RequestBody = v
		}
	}

	op.Responses = map[string]any{}
	if responses, ok := document.MapGet(node, "responses"); ok {
		if v, err := document.DecodeAny(responses); err == nil && v != nil {
			op.Responses = v
		}
	}

	op.Security = securityRequirements(node)
	if len(op.Security) == 0 {
		op.Security = globalSecurity
	}

	return op
}

// operationIDFromPath derives a stable operation id for operations that
// do not declare one: leading slashes stripped, remaining slashes become
// underscores, path-parameter braces are removed.
func operationIDFromPath(path string) string {
	id := strings.TrimLeft(path, "/")
	id = strings.ReplaceAll(id, "/", "_")
	id = strings.ReplaceAll(id, "{", "")
	id = strings.ReplaceAll(id, "}", "")
	return id
}

// ResolveParameterRefs resolves $ref entries in a parameter list against
// the document. References must be document-local ("#/" prefixed) and
// are walked one mapping key at a time; a dangling reference is logged
// and dropped from the result rather than surfaced as an error. Inline
// parameters pass through unchanged.
func ResolveParameterRefs(params *yaml.Node, doc *document.Document, logger *zap.Logger) []model.Parameter {
	if logger == nil {
		logger = zap.NewNop()
	}

	var resolved []model.Parameter
	for _, item := range document.Items(params) {
		refNode, ok := document.MapGet(item, "$ref")
		if !ok {
			if param, ok := decodeParameter(item); ok {
				resolved = append(resolved, param)
			}
			continue
		}

		ref, ok := document.StringValue(refNode)
		if !ok || !strings.HasPrefix(ref, "#/") {
			continue
		}

		target, ok := doc.Lookup(strings.Split(ref[2:], "/")...)
		if !ok {
			logger.Warn("could not resolve reference", zap.String("ref", ref))
			continue
		}

		if param, ok := decodeParameter(target); ok && len(param) > 0 {
			resolved = append(resolved, param)
		}
	}
	return resolved
}

func decodeParameter(node *yaml.Node) (model.Parameter, bool) {
	v, err := document.DecodeAny(node)
	if err != nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return model.Parameter(m), true
}

func securityRequirements(node *yaml.Node) []any {
	security, ok := document.MapGet(node, "security")
	if !ok {
		return nil
	}
	v, err := document.DecodeAny(security)
	if err != nil {
		return nil
	}
	reqs, _ := v.([]any)
	return reqs
}

func stringField(node *yaml.Node, key string) string {
	value, ok := document.MapGet(node, key)
	if !ok {
		return ""
	}
	s, _ := document.StringValue(value)
	return s
}
