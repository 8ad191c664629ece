package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/kolah/portico/internal/document"
	"github.com/kolah/portico/internal/loader"
	"github.com/kolah/portico/internal/model"
)

// Fetcher supplies raw parsed documents keyed by API name when the
// registry runs in remote mode. Per-entry failures are the fetcher's
// to handle; the registry only sees what came back.
type Fetcher interface {
	FetchAll(ctx context.Context) (map[string]*document.Document, error)
}

type Options struct {
	// SpecsDir is the root directory holding one subdirectory per API.
	SpecsDir string
	// UseLocal selects the local directory pass over the remote fetch.
	UseLocal bool
	// Fetcher supplies documents in remote mode.
	Fetcher Fetcher
	// BaseURLs seeds the per-API base URL override table. Seeded
	// entries always win over URLs derived from documents.
	BaseURLs map[string]string
}

// Registry owns the name-to-document snapshot and the base URL override
// table. Every Load replaces the snapshot wholesale; the override table
// is additive only and an existing entry is never overwritten.
type Registry struct {
	specsDir string
	useLocal bool
	fetcher  Fetcher
	logger   *zap.Logger

	mu       sync.RWMutex
	specs    map[string]*document.Document
	baseURLs map[string]string
}

func New(opts Options, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	baseURLs := make(map[string]string, len(opts.BaseURLs))
	for name, url := range opts.BaseURLs {
		baseURLs[name] = url
	}

	return &Registry{
		specsDir: opts.SpecsDir,
		useLocal: opts.UseLocal,
		fetcher:  opts.Fetcher,
		logger:   logger.With(zap.String("component", "registry")),
		specs:    map[string]*document.Document{},
		baseURLs: baseURLs,
	}
}

// loadResult is the per-API outcome of one pass. Exactly one of doc and
// err is set.
type loadResult struct {
	name string
	doc  *document.Document
	err  error
}

// Load runs one full pass and replaces the snapshot with its result.
// Per-API failures are logged and skipped; only a failure of the pass
// itself (an unreadable root, a dead catalog) is returned as an error.
func (r *Registry) Load(ctx context.Context) (map[string]*document.Document, error) {
	var results []loadResult
	var err error

	if r.useLocal {
		results, err = r.loadLocal()
	} else {
		results, err = r.loadRemote(ctx)
	}
	if err != nil {
		return nil, err
	}

	specs := make(map[string]*document.Document, len(results))

	r.mu.Lock()
	for _, res := range results {
		if res.err != nil {
			r.logSkip(res)
			continue
		}
		specs[res.name] = res.doc
		r.recordBaseURL(res.name, res.doc)
		r.logLoaded(res.name, res.doc)
	}
	r.specs = specs
	r.mu.Unlock()

	if !r.useLocal {
		r.logger.Info("loaded valid OpenAPI specs",
			zap.Int("valid", len(specs)),
			zap.Int("total", len(results)))
	}

	return r.Specs(), nil
}

func (r *Registry) loadLocal() ([]loadResult, error) {
	r.logger.Info("using local API specifications", zap.String("dir", r.specsDir))

	entries, err := os.ReadDir(r.specsDir)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Warn("specs directory does not exist", zap.String("dir", r.specsDir))
			return nil, nil
		}
		return nil, fmt.Errorf("reading specs directory: %w", err)
	}

	var results []loadResult
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		apiDir := filepath.Join(r.specsDir, entry.Name())
		specFile, ok := loader.FindSpecFile(apiDir)
		if !ok {
			r.logger.Warn("no OpenAPI specification found", zap.String("dir", apiDir))
			continue
		}

		doc, err := loader.ParseFile(specFile)
		results = append(results, loadResult{name: entry.Name(), doc: doc, err: err})
	}
	return results, nil
}

func (r *Registry) loadRemote(ctx context.Context) ([]loadResult, error) {
	r.logger.Info("using remote API specifications")

	if r.fetcher == nil {
		return nil, fmt.Errorf("remote mode requires a fetcher")
	}

	fetched, err := r.fetcher.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching API specs: %w", err)
	}

	names := make([]string, 0, len(fetched))
	for name := range fetched {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]loadResult, 0, len(names))
	for _, name := range names {
		doc := fetched[name]
		if !loader.IsSupportedSchema(doc) {
			results = append(results, loadResult{name: name, err: &loader.InvalidSchemaError{Path: name}})
			continue
		}
		results = append(results, loadResult{name: name, doc: doc})
	}
	return results, nil
}

func (r *Registry) logSkip(res loadResult) {
	switch res.err.(type) {
	case *loader.UnsupportedFormatError, *loader.ParseError, *loader.InvalidSchemaError:
		r.logger.Warn("skipping invalid API spec", zap.String("api", res.name), zap.Error(res.err))
	default:
		r.logger.Error("failed to load API spec", zap.String("api", res.name), zap.Error(res.err))
	}
}

func (r *Registry) logLoaded(name string, doc *document.Document) {
	r.logger.Info("loaded API spec",
		zap.String("api", name),
		zap.String("base_path", loader.BasePath(doc)),
		zap.Strings("servers", loader.ServerURLs(doc)),
		zap.Int("operations", len(loader.Operations(doc, r.logger))))
}

// recordBaseURL derives a base URL for a freshly loaded API unless the
// override table already has one. Callers hold r.mu.
func (r *Registry) recordBaseURL(name string, doc *document.Document) {
	if _, ok := r.baseURLs[name]; ok {
		r.logger.Debug("using configured base URL", zap.String("api", name))
		return
	}

	urls := loader.ServerURLs(doc)
	if len(urls) == 0 {
		r.logger.Warn("no servers defined", zap.String("api", name))
		return
	}

	r.baseURLs[name] = urls[0]
	r.logger.Debug("derived base URL", zap.String("api", name), zap.String("url", urls[0]))
}

// Specs returns the current snapshot. The map is a copy; the documents
// are shared and must be treated as read-only.
func (r *Registry) Specs() map[string]*document.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make(map[string]*document.Document, len(r.specs))
	for name, doc := range r.specs {
		specs[name] = doc
	}
	return specs
}

// Names returns the registered API names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spec returns one API's document.
func (r *Registry) Spec(name string) (*document.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.specs[name]
	return doc, ok
}

// Operations extracts the named API's operations. Unknown names yield
// an empty list, not an error.
func (r *Registry) Operations(name string) []model.Operation {
	doc, ok := r.Spec(name)
	if !ok {
		return nil
	}
	return loader.Operations(doc, r.logger)
}

// Info returns presentation metadata for one API, zero-valued when the
// name is unknown.
func (r *Registry) Info(name string) model.APIInfo {
	doc, ok := r.Spec(name)
	if !ok {
		return model.APIInfo{}
	}
	return loader.Info(doc, name)
}

// BaseURL returns the API's entry in the override table.
func (r *Registry) BaseURL(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	url, ok := r.baseURLs[name]
	return url, ok
}

// BaseURLs returns a copy of the override table.
func (r *Registry) BaseURLs() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	urls := make(map[string]string, len(r.baseURLs))
	for name, url := range r.baseURLs {
		urls[name] = url
	}
	return urls
}
