package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kolah/portico/internal/document"
)

func writeSpec(t *testing.T, root, api, filename, content string) {
	t.Helper()
	dir := filepath.Join(root, api)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644))
}

const petsSpec = `
openapi: "3.0.0"
info:
  title: Pets
servers:
  - url: https://pets.example.com/v1
paths:
  /pets:
    get:
      operationId: listPets
    post: {}
`

const legacySpec = `
swagger: "2.0"
info:
  title: Legacy
host: legacy.example.com
schemes:
  - http
basePath: /v2
paths:
  /items:
    get: {}
`

func TestLoadLocal(t *testing.T) {
	root := t.TempDir()
	writeSpec(t, root, "pets", "openapi.yaml", petsSpec)
	writeSpec(t, root, "legacy", "swagger.yaml", legacySpec)
	writeSpec(t, root, "docs-only", "readme.md", "# not a spec")
	writeSpec(t, root, "broken", "api.yaml", "openapi: [unclosed")
	writeSpec(t, root, "wrong-version", "api.yaml", "swagger: \"1.2\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0644))

	r := New(Options{SpecsDir: root, UseLocal: true}, nil)
	specs, err := r.Load(context.Background())
	require.NoError(t, err)

	// Failures skip their API without aborting the pass.
	require.Len(t, specs, 2)
	require.Contains(t, specs, "pets")
	require.Contains(t, specs, "legacy")

	require.Equal(t, []string{"legacy", "pets"}, r.Names())

	url, ok := r.BaseURL("pets")
	require.True(t, ok)
	require.Equal(t, "https://pets.example.com/v1", url)

	url, ok = r.BaseURL("legacy")
	require.True(t, ok)
	require.Equal(t, "http://legacy.example.com/v2", url)
}

func TestLoadLocalMissingRoot(t *testing.T) {
	r := New(Options{SpecsDir: filepath.Join(t.TempDir(), "absent"), UseLocal: true}, nil)

	specs, err := r.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, specs)
}

func TestLoadLocalZeroValid(t *testing.T) {
	root := t.TempDir()
	writeSpec(t, root, "broken", "api.yaml", "not: [valid")

	r := New(Options{SpecsDir: root, UseLocal: true}, nil)
	specs, err := r.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, specs)
}

func TestBaseURLOverrideWins(t *testing.T) {
	root := t.TempDir()
	writeSpec(t, root, "pets", "openapi.yaml", petsSpec)

	r := New(Options{
		SpecsDir: root,
		UseLocal: true,
		BaseURLs: map[string]string{"pets": "https://override.example.com"},
	}, nil)

	_, err := r.Load(context.Background())
	require.NoError(t, err)

	url, ok := r.BaseURL("pets")
	require.True(t, ok)
	require.Equal(t, "https://override.example.com", url)
}

func TestBaseURLSetOncePerName(t *testing.T) {
	root := t.TempDir()
	writeSpec(t, root, "pets", "openapi.yaml", petsSpec)

	r := New(Options{SpecsDir: root, UseLocal: true}, nil)
	_, err := r.Load(context.Background())
	require.NoError(t, err)

	// Change the spec's server and reload; the first derived URL stays.
	writeSpec(t, root, "pets", "openapi.yaml", `
openapi: "3.0.0"
servers:
  - url: https://moved.example.com
paths: {}
`)
	_, err = r.Load(context.Background())
	require.NoError(t, err)

	url, ok := r.BaseURL("pets")
	require.True(t, ok)
	require.Equal(t, "https://pets.example.com/v1", url)
}

func TestSnapshotReplacedWholesale(t *testing.T) {
	root := t.TempDir()
	writeSpec(t, root, "pets", "openapi.yaml", petsSpec)
	writeSpec(t, root, "legacy", "swagger.yaml", legacySpec)

	r := New(Options{SpecsDir: root, UseLocal: true}, nil)
	specs, err := r.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, specs, 2)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "legacy")))

	specs, err = r.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.NotContains(t, specs, "legacy")
	require.Empty(t, r.Operations("legacy"))
}

func TestNoServersNoOverride(t *testing.T) {
	root := t.TempDir()
	writeSpec(t, root, "bare", "openapi.yaml", "openapi: \"3.0.0\"\npaths: {}\n")

	r := New(Options{SpecsDir: root, UseLocal: true}, nil)
	_, err := r.Load(context.Background())
	require.NoError(t, err)

	_, ok := r.BaseURL("bare")
	require.False(t, ok)
}

func TestOperationsAndInfo(t *testing.T) {
	root := t.TempDir()
	writeSpec(t, root, "pets", "openapi.yaml", petsSpec)

	r := New(Options{SpecsDir: root, UseLocal: true}, nil)
	_, err := r.Load(context.Background())
	require.NoError(t, err)

	ops := r.Operations("pets")
	require.Len(t, ops, 2)
	require.Equal(t, "listPets", ops[0].OperationID)
	require.Equal(t, "pets", ops[1].OperationID)

	info := r.Info("pets")
	require.Equal(t, "Pets", info.Title)
	require.Equal(t, "/v1", info.BasePath)

	require.Empty(t, r.Operations("unknown"))
	require.Equal(t, "", r.Info("unknown").Name)
}

type fakeFetcher struct {
	specs map[string]string
	err   error
}

func (f *fakeFetcher) FetchAll(ctx context.Context) (map[string]*document.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	docs := make(map[string]*document.Document, len(f.specs))
	for name, data := range f.specs {
		doc, err := document.Parse([]byte(data))
		if err != nil {
			return nil, err
		}
		docs[name] = doc
	}
	return docs, nil
}

func TestLoadRemote(t *testing.T) {
	fetcher := &fakeFetcher{specs: map[string]string{
		"pets":    petsSpec,
		"legacy":  legacySpec,
		"invalid": "info: {title: nope}",
	}}

	r := New(Options{Fetcher: fetcher}, nil)
	specs, err := r.Load(context.Background())
	require.NoError(t, err)

	// The validator filters fetched documents.
	require.Len(t, specs, 2)
	require.NotContains(t, specs, "invalid")

	url, ok := r.BaseURL("pets")
	require.True(t, ok)
	require.Equal(t, "https://pets.example.com/v1", url)
}

func TestLoadRemoteFetchFailure(t *testing.T) {
	r := New(Options{Fetcher: &fakeFetcher{err: fmt.Errorf("catalog unreachable")}}, nil)

	_, err := r.Load(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "catalog unreachable")
}

func TestLoadRemoteWithoutFetcher(t *testing.T) {
	r := New(Options{}, nil)

	_, err := r.Load(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "fetcher")
}
