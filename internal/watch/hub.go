package watch

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/conduit-lang/docmeta/compiler/errors"
	"github.com/conduit-lang/docmeta/internal/logging"
)

// Event types sent to clients
const (
	EventBuilding = "building"
	EventSuccess  = "success"
	EventError    = "error"
)

// Event is a build event broadcast to websocket clients
type Event struct {
	Type      string      `json:"type"`      // "building", "success" or "error"
	Timestamp int64       `json:"timestamp"` // Unix timestamp
	Files     []string    `json:"files,omitempty"`
	Units     int         `json:"units,omitempty"`
	Duration  float64     `json:"duration,omitempty"` // Milliseconds
	Errors    []ErrorInfo `json:"errors,omitempty"`
}

// ErrorInfo holds detailed error information
type ErrorInfo struct {
	Message  string `json:"message"`
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Code     string `json:"code,omitempty"`
	Phase    string `json:"phase,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// NewErrorInfo converts a compiler error
func NewErrorInfo(err errors.CompilerError) ErrorInfo {
	return ErrorInfo{
		Message:  err.Message,
		File:     err.Location.File,
		Line:     err.Location.Line,
		Column:   err.Location.Column,
		Code:     err.Code,
		Phase:    err.Phase,
		Severity: err.Severity.String(),
	}
}

// EventHub manages websocket connections and broadcasts build events
type EventHub struct {
	connections map[*websocket.Conn]bool
	broadcast   chan *Event
	register    chan *websocket.Conn
	unregister  chan *websocket.Conn
	done        chan struct{}
	closeOnce   sync.Once
	mutex       sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewEventHub creates a hub and starts its broadcast loop
func NewEventHub(logger *zap.Logger) *EventHub {
	h := &EventHub{
		connections: make(map[*websocket.Conn]bool),
		broadcast:   make(chan *Event, 256),
		register:    make(chan *websocket.Conn),
		unregister:  make(chan *websocket.Conn),
		done:        make(chan struct{}),
		logger:      logging.OrNop(logger),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				// Allow localhost only
				return strings.HasPrefix(origin, "http://localhost") ||
					strings.HasPrefix(origin, "https://localhost") ||
					strings.HasPrefix(origin, "http://127.0.0.1") ||
					strings.HasPrefix(origin, "https://127.0.0.1")
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	go h.run()

	return h
}

// run handles the connection lifecycle
func (h *EventHub) run() {
	for {
		select {
		case <-h.done:
			return

		case conn := <-h.register:
			h.mutex.Lock()
			h.connections[conn] = true
			n := len(h.connections)
			h.mutex.Unlock()
			h.logger.Debug("client connected", zap.Int("clients", n))

		case conn := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				conn.Close()
			}
			n := len(h.connections)
			h.mutex.Unlock()
			h.logger.Debug("client disconnected", zap.Int("clients", n))

		case event := <-h.broadcast:
			h.sendToAll(event)
		}
	}
}

// sendToAll sends an event to all connected clients
func (h *EventHub) sendToAll(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.Error(err))
		return
	}

	h.mutex.RLock()
	var failed []*websocket.Conn
	for conn := range h.connections {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("failed to send event", zap.Error(err))
			failed = append(failed, conn)
		}
	}
	h.mutex.RUnlock()

	if len(failed) > 0 {
		h.mutex.Lock()
		for _, conn := range failed {
			if _, ok := h.connections[conn]; ok {
				conn.Close()
				delete(h.connections, conn)
			}
		}
		h.mutex.Unlock()
	}
}

// HandleWebSocket upgrades HTTP connections to websocket
func (h *EventHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade connection", zap.Error(err))
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	go h.readMessages(conn)
}

// readMessages reads client messages for keepalive
func (h *EventHub) readMessages(conn *websocket.Conn) {
	defer func() {
		select {
		case h.unregister <- conn:
		case <-h.done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket error", zap.Error(err))
			}
			return
		}
	}
}

func (h *EventHub) send(event *Event) {
	event.Timestamp = time.Now().Unix()
	select {
	case h.broadcast <- event:
	case <-h.done:
	}
}

// NotifyBuilding sends a "building" event
func (h *EventHub) NotifyBuilding(files []string) {
	h.send(&Event{Type: EventBuilding, Files: files})
}

// NotifySuccess sends a "success" event
func (h *EventHub) NotifySuccess(units int, duration time.Duration) {
	h.send(&Event{
		Type:     EventSuccess,
		Units:    units,
		Duration: float64(duration.Milliseconds()),
	})
}

// NotifyErrors sends an "error" event carrying every error
func (h *EventHub) NotifyErrors(errs []errors.CompilerError) {
	infos := make([]ErrorInfo, len(errs))
	for i, err := range errs {
		infos[i] = NewErrorInfo(err)
	}
	h.send(&Event{Type: EventError, Errors: infos})
}

// ConnectionCount returns the number of active connections
func (h *EventHub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.connections)
}

// Close closes all connections and stops the hub
func (h *EventHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.mutex.Lock()
		defer h.mutex.Unlock()
		for conn := range h.connections {
			conn.Close()
		}
		h.connections = make(map[*websocket.Conn]bool)
	})
}
