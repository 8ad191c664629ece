package loader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kolah/portico/internal/model"
)

func TestOperationsMethodFilter(t *testing.T) {
	doc := parseDoc(t, `
openapi: "3.0.0"
paths:
  /pets:
    summary: Pet collection
    parameters:
      - name: limit
        in: query
    x-internal: true
    get:
      operationId: listPets
    post:
      operationId: createPet
    trace:
      operationId: tracePets
`)

	ops := Operations(doc, nil)
	require.Len(t, ops, 2)
	require.Equal(t, "listPets", ops[0].OperationID)
	require.Equal(t, model.MethodGet, ops[0].Method)
	require.Equal(t, "createPet", ops[1].OperationID)
	require.Equal(t, model.MethodPost, ops[1].Method)
}

func TestOperationsDocumentOrder(t *testing.T) {
	doc := parseDoc(t, `
openapi: "3.0.0"
paths:
  /zebras:
    get: {}
  /apples:
    post: {}
    get: {}
  /mangos:
    delete: {}
`)

	ops := Operations(doc, nil)
	require.Len(t, ops, 4)

	var got []string
	for _, op := range ops {
		got = append(got, string(op.Method)+" "+op.Path)
	}
	require.Equal(t, []string{"get /zebras", "post /apples", "get /apples", "delete /mangos"}, got)
}

func TestOperationIDFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{path: "/users/{id}/orders", want: "users_id_orders"},
		{path: "/pets", want: "pets"},
		{path: "/", want: ""},
		{path: "/v1/items/{itemId}", want: "v1_items_itemId"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.want, operationIDFromPath(tt.path))
		})
	}
}

func TestOperationsDerivedID(t *testing.T) {
	doc := parseDoc(t, `
openapi: "3.0.0"
paths:
  /users/{id}/orders:
    get:
      summary: List orders
`)

	ops := Operations(doc, nil)
	require.Len(t, ops, 1)
	require.Equal(t, "users_id_orders", ops[0].OperationID)
	require.Equal(t, "List orders", ops[0].Summary)
	require.Equal(t, "", ops[0].Description)
}

func TestOperationsEmptyOperationIDDerived(t *testing.T) {
	doc := parseDoc(t, `
openapi: "3.0.0"
paths:
  /pets:
    get:
      operationId: ""
`)

	ops := Operations(doc, nil)
	require.Len(t, ops, 1)
	require.Equal(t, "pets", ops[0].OperationID)
}

func TestOperationsSecurityFallback(t *testing.T) {
	doc := parseDoc(t, `
openapi: "3.0.0"
security:
  - apiKey: []
paths:
  /public:
    get: {}
  /private:
    get:
      security:
        - oauth:
            - read
`)

	ops := Operations(doc, nil)
	require.Len(t, ops, 2)

	// No operation security: the document-level requirement applies.
	require.Equal(t, []any{map[string]any{"apiKey": []any{}}}, ops[0].Security)

	// Operation security wins over the global one.
	require.Equal(t, []any{map[string]any{"oauth": []any{"read"}}}, ops[1].Security)
}

func TestOperationsNoSecurityAnywhere(t *testing.T) {
	doc := parseDoc(t, `
openapi: "3.0.0"
paths:
  /pets:
    get: {}
`)

	ops := Operations(doc, nil)
	require.Len(t, ops, 1)
	require.Empty(t, ops[0].Security)
}

func TestOperationsBodyAndResponses(t *testing.T) {
	doc := parseDoc(t, `
openapi: "3.0.0"
paths:
  /pets:
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
      responses:
        "201":
          description: created
    get: {}
`)

	ops := Operations(doc, nil)
	require.Len(t, ops, 2)

	body, ok := ops[0].RequestBody.(map[string]any)
	require.True(t, ok)
	require.Equal(t, true, body["required"])

	responses, ok := ops[0].Responses.(map[string]any)
	require.True(t, ok)
	require.Contains(t, responses, "201")

	// Absent request body stays nil; absent responses become an empty map.
	require.Nil(t, ops[1].RequestBody)
	require.Equal(t, map[string]any{}, ops[1].Responses)
}

func TestOperationsNoPaths(t *testing.T) {
	doc := parseDoc(t, `openapi: "3.0.0"`)
	require.Empty(t, Operations(doc, nil))
}

func TestResolveParameterRefs(t *testing.T) {
	doc := parseDoc(t, `
openapi: "3.0.0"
components:
  parameters:
    Limit:
      name: limit
      in: query
      required: true
      schema:
        type: integer
paths:
  /pets:
    get:
      parameters:
        - $ref: "#/components/parameters/Limit"
        - name: verbose
          in: query
`)

	ops := Operations(doc, nil)
	require.Len(t, ops, 1)
	require.Len(t, ops[0].Parameters, 2)

	limit := ops[0].Parameters[0]
	require.Equal(t, "limit", limit.Name())
	require.Equal(t, "query", limit.In())
	require.True(t, limit.Required())
	require.Equal(t, map[string]any{"type": "integer"}, limit.Schema())

	verbose := ops[0].Parameters[1]
	require.Equal(t, "verbose", verbose.Name())
	require.False(t, verbose.Required())
}

func TestResolveParameterRefsDangling(t *testing.T) {
	doc := parseDoc(t, `
openapi: "3.0.0"
components:
  parameters: {}
paths:
  /pets:
    get:
      parameters:
        - $ref: "#/components/parameters/Limit"
        - name: verbose
          in: query
`)

	ops := Operations(doc, nil)
	require.Len(t, ops, 1)

	// The dangling reference is dropped; the inline entry is untouched.
	require.Len(t, ops[0].Parameters, 1)
	require.Equal(t, "verbose", ops[0].Parameters[0].Name())
}

func TestResolveParameterRefsExternalDropped(t *testing.T) {
	doc := parseDoc(t, `
openapi: "3.0.0"
paths:
  /pets:
    get:
      parameters:
        - $ref: "common.yaml#/components/parameters/Limit"
`)

	ops := Operations(doc, nil)
	require.Len(t, ops, 1)
	require.Empty(t, ops[0].Parameters)
}

func TestResolveParameterRefsDirect(t *testing.T) {
	doc := parseDoc(t, `
swagger: "2.0"
parameters:
  Page:
    name: page
    in: query
`)

	list := parseDoc(t, `
- $ref: "#/parameters/Page"
- $ref: "#/parameters/Missing"
`)

	resolved := ResolveParameterRefs(list.Root(), doc, nil)
	require.Len(t, resolved, 1)
	require.Equal(t, "page", resolved[0].Name())
}
