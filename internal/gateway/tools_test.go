package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kolah/portico/internal/model"
)

func TestBuildTool(t *testing.T) {
	op := model.Operation{
		Path:        "/pets",
		Method:      model.MethodGet,
		OperationID: "listPets",
		Summary:     "List all pets",
		Parameters: []model.Parameter{
			{
				"name":        "limit",
				"in":          "query",
				"required":    true,
				"description": "Maximum number of pets",
				"schema":      map[string]any{"type": "integer"},
			},
			{
				"name": "verbose",
				"in":   "query",
			},
			{
				"in": "query", // no name, skipped
			},
		},
	}

	tool := buildTool("", op)
	require.Equal(t, "listPets", tool.Name)
	require.Equal(t, "List all pets", tool.Description)
	require.Equal(t, "object", tool.InputSchema["type"])

	properties, ok := tool.InputSchema["properties"].(map[string]any)
	require.True(t, ok)
	require.Len(t, properties, 2)

	limit, ok := properties["limit"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "integer", limit["type"])
	require.Equal(t, "Maximum number of pets", limit["description"])

	verbose, ok := properties["verbose"].(map[string]any)
	require.True(t, ok, "parameters without a schema default to string")
	require.Equal(t, "string", verbose["type"])

	require.Equal(t, []string{"limit"}, tool.InputSchema["required"])
}

func TestBuildToolRequestBody(t *testing.T) {
	op := model.Operation{
		Path:        "/pets",
		Method:      model.MethodPost,
		OperationID: "createPet",
		RequestBody: map[string]any{"required": true, "content": map[string]any{}},
	}

	tool := buildTool("", op)
	properties := tool.InputSchema["properties"].(map[string]any)

	body, ok := properties["body"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "object", body["type"])
	require.Equal(t, []string{"body"}, tool.InputSchema["required"])
}

func TestBuildToolOptionalRequestBody(t *testing.T) {
	op := model.Operation{
		Path:        "/pets",
		Method:      model.MethodPost,
		OperationID: "createPet",
		RequestBody: map[string]any{"content": map[string]any{}},
	}

	tool := buildTool("", op)
	properties := tool.InputSchema["properties"].(map[string]any)

	_, ok := properties["body"]
	require.True(t, ok)
	require.NotContains(t, tool.InputSchema, "required")
}

func TestToolNamePrefix(t *testing.T) {
	op := model.Operation{OperationID: "listPets"}
	require.Equal(t, "listPets", toolName("", op))
	require.Equal(t, "petstore_listPets", toolName("petstore", op))
}

func TestToolDescriptionFallbacks(t *testing.T) {
	tests := []struct {
		name string
		op   model.Operation
		want string
	}{
		{
			name: "summary wins",
			op:   model.Operation{Summary: "List pets", Description: "Verbose text"},
			want: "List pets",
		},
		{
			name: "description second",
			op:   model.Operation{Description: "Verbose text"},
			want: "Verbose text",
		},
		{
			name: "method and path last",
			op:   model.Operation{Method: model.MethodDelete, Path: "/pets/{petId}"},
			want: "DELETE /pets/{petId}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, toolDescription(tt.op))
		})
	}
}

func TestMountPath(t *testing.T) {
	tests := []struct {
		title    string
		fallback string
		want     string
	}{
		{title: "Pets", fallback: "pets", want: "/pets/v1"},
		{title: "Petstore - v2", fallback: "petstore", want: "/petstore/v2"},
		{title: "orders-v3", fallback: "orders", want: "/orders/v3"},
		{title: "Billing-", fallback: "billing", want: "/billing/v1"},
		{title: "- v2", fallback: "MyAPI", want: "/myapi/v2"},
		{title: "", fallback: "MyAPI", want: "/myapi/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			require.Equal(t, tt.want, mountPath(tt.title, tt.fallback))
		})
	}
}
