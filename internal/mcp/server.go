package mcp

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ToolHandler executes one tool call with the decoded arguments. A returned
// error becomes a tool result with isError set, not a protocol error.
type ToolHandler func(ctx context.Context, args map[string]any) (*ToolResult, error)

// Server answers JSON-RPC messages for one mounted API. Tools are advertised
// in registration order.
type Server struct {
	info   ServerInfo
	logger *zap.Logger

	mu       sync.RWMutex
	tools    []Tool
	handlers map[string]ToolHandler
}

func NewServer(name, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		info:     ServerInfo{Name: name, Version: version},
		logger:   logger.With(zap.String("component", "mcp"), zap.String("server", name)),
		handlers: make(map[string]ToolHandler),
	}
}

// Info returns the identity advertised during initialize.
func (s *Server) Info() ServerInfo {
	return s.info
}

// RegisterTool adds a tool and its handler. Registering an existing name
// replaces the previous definition in place.
func (s *Server) RegisterTool(tool Tool, handler ToolHandler) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.handlers[tool.Name]; exists {
		for i := range s.tools {
			if s.tools[i].Name == tool.Name {
				s.tools[i] = tool
				break
			}
		}
	} else {
		s.tools = append(s.tools, tool)
	}
	s.handlers[tool.Name] = handler
	return nil
}

// Tools returns the advertised tools in registration order.
func (s *Server) Tools() []Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

// HandleMessage dispatches one message and returns the response to deliver.
// Notifications return nil.
func (s *Server) HandleMessage(ctx context.Context, msg *Message) *Message {
	if msg == nil {
		return NewError(nil, CodeInvalidRequest, "empty message")
	}
	if msg.JSONRPC != "" && msg.JSONRPC != "2.0" {
		return NewError(msg.ID, CodeInvalidRequest, "unsupported JSON-RPC version")
	}

	s.logger.Debug("handling message", zap.String("method", msg.Method), zap.Any("id", msg.ID))

	// Notifications carry no ID and get no response.
	if msg.ID == nil {
		s.handleNotification(msg)
		return nil
	}

	switch msg.Method {
	case "initialize":
		return NewResponse(msg.ID, InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    map[string]any{"tools": map[string]any{"listChanged": false}},
			ServerInfo:      s.info,
		})
	case "ping":
		return NewResponse(msg.ID, map[string]any{})
	case "tools/list":
		return NewResponse(msg.ID, map[string]any{"tools": s.Tools()})
	case "tools/call":
		return s.handleToolCall(ctx, msg)
	default:
		return NewError(msg.ID, CodeMethodNotFound, fmt.Sprintf("method not found: %s", msg.Method))
	}
}

func (s *Server) handleNotification(msg *Message) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Debug("client initialized")
	default:
		s.logger.Debug("unhandled notification", zap.String("method", msg.Method))
	}
}

func (s *Server) handleToolCall(ctx context.Context, msg *Message) *Message {
	name, _ := msg.Params["name"].(string)
	if name == "" {
		return NewError(msg.ID, CodeInvalidParams, "missing required parameter: name")
	}
	// Arguments may be absent for tools without parameters.
	args, _ := msg.Params["arguments"].(map[string]any)

	s.mu.RLock()
	handler, ok := s.handlers[name]
	s.mu.RUnlock()
	if !ok {
		return NewError(msg.ID, CodeInvalidParams, fmt.Sprintf("unknown tool: %s", name))
	}

	result, err := handler(ctx, args)
	if err != nil {
		s.logger.Warn("tool call failed", zap.String("tool", name), zap.Error(err))
		return NewResponse(msg.ID, TextResult(err.Error(), true))
	}

	s.logger.Debug("tool call succeeded", zap.String("tool", name))
	return NewResponse(msg.ID, result)
}
