package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kolah/portico/internal/mcp"
	"github.com/kolah/portico/internal/model"
)

// invoker executes tool calls against one upstream API.
type invoker struct {
	baseURL string
	headers map[string]string
	client  *http.Client
	logger  *zap.Logger
}

func newInvoker(baseURL string, headers map[string]string, timeout time.Duration, logger *zap.Logger) *invoker {
	return &invoker{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		headers: headers,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// call maps tool arguments onto the operation's path, query, headers, and
// body, performs the request, and folds the response into a tool result.
// Upstream error statuses are results with isError set, not Go errors.
func (inv *invoker) call(ctx context.Context, op model.Operation, args map[string]any) (*mcp.ToolResult, error) {
	path := op.Path
	query := url.Values{}
	paramHeaders := map[string]string{}

	for _, param := range op.Parameters {
		name := param.Name()
		value, ok := args[name]
		if !ok {
			continue
		}
		switch param.In() {
		case "path":
			path = strings.ReplaceAll(path, "{"+name+"}", fmt.Sprint(value))
		case "query":
			query.Set(name, fmt.Sprint(value))
		case "header":
			paramHeaders[name] = fmt.Sprint(value)
		}
	}

	var body io.Reader
	if raw, ok := args["body"]; ok {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	requestURL := inv.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		requestURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(string(op.Method)), requestURL, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for name, value := range inv.headers {
		req.Header.Set(name, value)
	}
	// Header parameters from the caller win over configured headers.
	for name, value := range paramHeaders {
		req.Header.Set(name, value)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := inv.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", requestURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", requestURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		inv.logger.Warn("upstream call failed",
			zap.String("url", requestURL),
			zap.Int("status", resp.StatusCode),
		)
		return mcp.TextResult(fmt.Sprintf("%s: %s", resp.Status, respBody), true), nil
	}

	return mcp.TextResult(string(respBody), false), nil
}
