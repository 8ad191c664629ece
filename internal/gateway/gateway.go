package gateway

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kolah/portico/internal/loader"
	"github.com/kolah/portico/internal/mcp"
	"github.com/kolah/portico/internal/registry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fallbackBaseURL is used when an API resolves no server URL at all.
const fallbackBaseURL = "http://localhost:8000"

// Options configure the serving surface.
type Options struct {
	Name           string
	Version        string
	ToolPrefix     string
	RequestTimeout time.Duration
	DefaultHeaders map[string]string
	APIHeaders     map[string]map[string]string
	Metrics        *prometheus.Registry
}

// apiMount is one API exposed at a mount path.
type apiMount struct {
	name    string
	title   string
	baseURL string
	server  *mcp.Server
	tools   []mcp.Tool
}

// Gateway exposes every registered API as an MCP server over SSE, plus the
// operational HTTP endpoints.
type Gateway struct {
	registry *registry.Registry
	opts     Options
	logger   *zap.Logger
	metrics  *prometheus.Registry
	router   *mux.Router
	handler  http.Handler
	mounts   map[string]*apiMount
	started  time.Time
}

// New builds the serving surface from the registry's current snapshot.
func New(reg *registry.Registry, opts Options, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Name == "" {
		opts.Name = "portico"
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = prometheus.NewRegistry()
	}

	g := &Gateway{
		registry: reg,
		opts:     opts,
		logger:   logger.With(zap.String("component", "gateway")),
		metrics:  metrics,
		mounts:   map[string]*apiMount{},
		started:  time.Now(),
	}
	g.buildMounts()
	g.buildRouter()
	g.handler = Chain(g.router,
		Recovery(g.logger),
		RequestLogger(g.logger),
		CORS(),
		Metrics(metrics, "portico"),
	)
	return g
}

// Handler returns the fully wired HTTP handler.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Mounts returns the mount paths in sorted order.
func (g *Gateway) Mounts() []string {
	paths := make([]string, 0, len(g.mounts))
	for mount := range g.mounts {
		paths = append(paths, mount)
	}
	sort.Strings(paths)
	return paths
}

func (g *Gateway) buildMounts() {
	for _, name := range g.registry.Names() {
		doc, ok := g.registry.Spec(name)
		if !ok {
			continue
		}
		// Registered documents are re-checked before being exposed.
		if !loader.IsSupportedSchema(doc) {
			g.logger.Warn("skipping API with unsupported schema", zap.String("api", name))
			continue
		}

		info := g.registry.Info(name)
		mount := mountPath(info.Title, name)

		baseURL, ok := g.registry.BaseURL(name)
		if !ok || baseURL == "" {
			baseURL = fallbackBaseURL
			g.logger.Warn("no base URL resolved, using placeholder",
				zap.String("api", name),
				zap.String("base_url", baseURL),
			)
		}

		headers := map[string]string{}
		for k, v := range g.opts.DefaultHeaders {
			headers[k] = v
		}
		for k, v := range g.opts.APIHeaders[name] {
			headers[k] = v
		}

		version := info.Version
		if version == "" {
			version = "1.0.0"
		}
		server := mcp.NewServer(info.Title, version, g.logger)
		inv := newInvoker(baseURL, headers, g.opts.RequestTimeout, g.logger.With(zap.String("api", name)))

		for _, op := range g.registry.Operations(name) {
			tool := buildTool(g.opts.ToolPrefix, op)
			handler := func(ctx context.Context, args map[string]any) (*mcp.ToolResult, error) {
				return inv.call(ctx, op, args)
			}
			if err := server.RegisterTool(tool, handler); err != nil {
				g.logger.Warn("skipping tool",
					zap.String("api", name),
					zap.String("path", op.Path),
					zap.Error(err),
				)
			}
		}

		// RegisterTool replaces duplicate names in place, so the mount's
		// tool list comes from the server rather than one entry per
		// registration.
		tools := server.Tools()

		if prev, exists := g.mounts[mount]; exists {
			g.logger.Warn("duplicate mount path, replacing",
				zap.String("mount", mount),
				zap.String("replaced", prev.name),
				zap.String("api", name),
			)
		}
		g.mounts[mount] = &apiMount{
			name:    name,
			title:   info.Title,
			baseURL: baseURL,
			server:  server,
			tools:   tools,
		}
		g.logger.Info("mounted API",
			zap.String("api", name),
			zap.String("mount", mount),
			zap.String("base_url", baseURL),
			zap.Int("tools", len(tools)),
		)
	}
}

func (g *Gateway) buildRouter() {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/", g.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/health", g.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/debug", g.handleDebug).Methods(http.MethodGet)
	router.HandleFunc("/tools", g.handleTools).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(g.metrics, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// The root stream serves a tool-less server named after the gateway.
	root := mcp.NewServer(g.opts.Name, g.opts.Version, g.logger)
	rootSSE := mcp.NewSSEHandler(root, "/message", g.logger)
	router.HandleFunc("/sse", rootSSE.ServeStream).Methods(http.MethodGet)
	router.HandleFunc("/message", rootSSE.ServeMessage).Methods(http.MethodPost)

	for mount, api := range g.mounts {
		sse := mcp.NewSSEHandler(api.server, mount+"/message", g.logger)
		router.HandleFunc(mount+"/sse", sse.ServeStream).Methods(http.MethodGet)
		router.HandleFunc(mount+"/message", sse.ServeMessage).Methods(http.MethodPost)
	}

	g.router = router
}

// mountPath derives the HTTP mount from an API title: the part before the
// first dash (lowercased) plus the part after it as the version, or v1 when
// the title carries no version.
func mountPath(title, fallback string) string {
	name := title
	version := "v1"
	if before, after, found := strings.Cut(title, "-"); found {
		name = before
		if v := strings.TrimSpace(after); v != "" {
			version = v
		}
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = strings.ToLower(fallback)
	}
	return "/" + name + "/" + version
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("encoding response", zap.Error(err))
	}
}

func (g *Gateway) handleRoot(w http.ResponseWriter, _ *http.Request) {
	g.writeJSON(w, http.StatusOK, map[string]any{
		"name":        g.opts.Name,
		"description": "MCP gateway exposing OpenAPI operations as tools",
		"version":     g.opts.Version,
		"status":      "healthy",
		"timestamp":   time.Now().Format(time.RFC3339),
		"api_count":   len(g.mounts),
	})
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "inactive"
	if len(g.mounts) > 0 {
		status = "active"
	}
	g.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   g.opts.Version,
		"uptime":    time.Since(g.started).Round(time.Second).String(),
		"services": map[string]any{
			"gateway": "available",
			"api_servers": map[string]any{
				"count":  len(g.mounts),
				"status": status,
			},
		},
	})
}

func (g *Gateway) handleDebug(w http.ResponseWriter, _ *http.Request) {
	routes := []map[string]any{}
	_ = g.router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := route.GetMethods()
		routes = append(routes, map[string]any{"path": path, "methods": methods})
		return nil
	})

	apis := map[string]any{}
	for mount, api := range g.mounts {
		apis[mount] = map[string]any{
			"name":     api.name,
			"title":    api.title,
			"base_url": api.baseURL,
			"tools":    len(api.tools),
		}
	}

	g.writeJSON(w, http.StatusOK, map[string]any{
		"apis":        apis,
		"routes":      routes,
		"mcp_servers": g.Mounts(),
	})
}

func (g *Gateway) handleTools(w http.ResponseWriter, _ *http.Request) {
	type toolInfo struct {
		API   string `json:"api"`
		Mount string `json:"mount"`
		mcp.Tool
	}

	tools := []toolInfo{}
	for _, mount := range g.Mounts() {
		api := g.mounts[mount]
		for _, tool := range api.tools {
			tools = append(tools, toolInfo{API: api.name, Mount: mount, Tool: tool})
		}
	}

	g.writeJSON(w, http.StatusOK, map[string]any{
		"count": len(tools),
		"tools": tools,
	})
}
