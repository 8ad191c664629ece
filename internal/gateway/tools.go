package gateway

import (
	"fmt"
	"strings"

	"github.com/kolah/portico/internal/mcp"
	"github.com/kolah/portico/internal/model"
)

func toolName(prefix string, op model.Operation) string {
	if prefix == "" {
		return op.OperationID
	}
	return prefix + "_" + op.OperationID
}

// toolDescription prefers the summary, then the description, then a
// method+path label so every tool has something human readable.
func toolDescription(op model.Operation) string {
	if op.Summary != "" {
		return op.Summary
	}
	if op.Description != "" {
		return op.Description
	}
	return fmt.Sprintf("%s %s", strings.ToUpper(string(op.Method)), op.Path)
}

// buildTool derives the advertised tool for one operation. Parameters
// become schema properties under their own names; a declared request body
// becomes a "body" object property.
func buildTool(prefix string, op model.Operation) mcp.Tool {
	properties := map[string]any{}
	var required []string

	for _, param := range op.Parameters {
		name := param.Name()
		if name == "" {
			continue
		}

		schema := map[string]any{}
		if s, ok := param.Schema().(map[string]any); ok {
			for k, v := range s {
				schema[k] = v
			}
		}
		if len(schema) == 0 {
			schema["type"] = "string"
		}
		if desc := param.Description(); desc != "" {
			schema["description"] = desc
		}

		properties[name] = schema
		if param.Required() {
			required = append(required, name)
		}
	}

	if op.RequestBody != nil {
		properties["body"] = map[string]any{
			"type":        "object",
			"description": "Request body",
		}
		if body, ok := op.RequestBody.(map[string]any); ok {
			if req, _ := body["required"].(bool); req {
				required = append(required, "body")
			}
		}
	}

	inputSchema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		inputSchema["required"] = required
	}

	return mcp.Tool{
		Name:        toolName(prefix, op),
		Description: toolDescription(op),
		InputSchema: inputSchema,
	}
}
