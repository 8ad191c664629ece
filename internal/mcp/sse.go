package mcp

import (
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Writer emits server-sent events over an http.ResponseWriter.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewWriter prepares w for event streaming. It fails when the underlying
// writer cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &Writer{w: w, flusher: flusher}, nil
}

// Send marshals data as JSON and emits it under the given event type.
func (w *Writer) Send(eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return w.SendRaw(eventType, jsonData)
}

// SendRaw emits a single event frame and flushes it to the client.
func (w *Writer) SendRaw(eventType string, data []byte) error {
	if eventType != "" {
		if _, err := fmt.Fprintf(w.w, "event: %s\n", eventType); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", data); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

// session is one connected SSE client. Slow consumers drop messages rather
// than block the POST handler.
type session struct {
	id  string
	out chan *Message
}

func (s *session) push(logger *zap.Logger, msg *Message) {
	select {
	case s.out <- msg:
	default:
		logger.Warn("session buffer full, dropping message", zap.String("session", s.id))
	}
}

// SSEHandler bridges HTTP to a Server: GET streams responses as events,
// POST submits messages addressed to an open session.
type SSEHandler struct {
	server   *Server
	endpoint string
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewSSEHandler serves the given server over SSE. The endpoint is the
// message URL advertised to clients, relative to the HTTP root.
func NewSSEHandler(server *Server, endpoint string, logger *zap.Logger) *SSEHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SSEHandler{
		server:   server,
		endpoint: endpoint,
		logger:   logger.With(zap.String("component", "sse"), zap.String("server", server.info.Name)),
		sessions: make(map[string]*session),
	}
}

// ServeStream handles the SSE GET endpoint. It opens a session, tells the
// client where to POST messages, and streams responses until the client
// disconnects.
func (h *SSEHandler) ServeStream(w http.ResponseWriter, r *http.Request) {
	writer, err := NewWriter(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	sess := &session{id: uuid.NewString(), out: make(chan *Message, 16)}
	h.mu.Lock()
	h.sessions[sess.id] = sess
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.sessions, sess.id)
		h.mu.Unlock()
		h.logger.Debug("session closed", zap.String("session", sess.id))
	}()

	h.logger.Debug("session opened", zap.String("session", sess.id))

	// The endpoint event data is the bare message URL, not JSON.
	if err := writer.SendRaw("endpoint", fmt.Appendf(nil, "%s?session=%s", h.endpoint, sess.id)); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-sess.out:
			if err := writer.Send("message", msg); err != nil {
				h.logger.Warn("closing session: send failed", zap.String("session", sess.id), zap.Error(err))
				return
			}
		}
	}
}

// ServeMessage handles the POST endpoint. The response to the submitted
// message is delivered on the session stream, not in the POST body.
func (h *SSEHandler) ServeMessage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	h.mu.RLock()
	sess, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "could not read message", http.StatusBadRequest)
		return
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		sess.push(h.logger, NewError(nil, CodeParseError, "could not parse message"))
		http.Error(w, "could not parse message", http.StatusBadRequest)
		return
	}

	if resp := h.server.HandleMessage(r.Context(), &msg); resp != nil {
		sess.push(h.logger, resp)
	}
	w.WriteHeader(http.StatusAccepted)
}
