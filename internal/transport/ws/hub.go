// Package ws serves the voice gateway over WebSocket. Each connection carries
// at most one call.
package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Connection represents a single gateway connection.
type Connection struct {
	ID            string
	CallSessionID string
	Conn          *websocket.Conn
	Send          chan []byte
	hub           *Hub
	mu            sync.Mutex
}

// Hub manages all gateway connections.
type Hub struct {
	logger *zap.Logger

	// Connections indexed by connection ID
	connections map[string]*Connection

	// Calls maps call_session_id to its connection
	calls map[string]*Connection

	mu sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:      logger,
		connections: make(map[string]*Connection),
		calls:       make(map[string]*Connection),
	}
}

// NewConnection creates a new connection. It must be registered before use.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, 64),
		hub:  h,
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	h.connections[conn.ID] = conn
	h.mu.Unlock()
	h.logger.Debug("connection registered", zap.String("conn_id", conn.ID))
}

// Unregister removes a connection and closes its send queue. Calling it more
// than once is a no-op.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if conn.CallSessionID != "" && h.calls[conn.CallSessionID] == conn {
		delete(h.calls, conn.CallSessionID)
	}
	close(conn.Send)
	h.logger.Debug("connection unregistered", zap.String("conn_id", conn.ID))
}

// BindCall binds a connection to a call session. It reports false when the
// call session is already bound to another connection.
func (h *Hub) BindCall(conn *Connection, callSessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if other, ok := h.calls[callSessionID]; ok && other != conn {
		return false
	}
	conn.CallSessionID = callSessionID
	h.calls[callSessionID] = conn
	return true
}

// SendToConnection queues a message for a connection.
func (h *Hub) SendToConnection(conn *Connection, data []byte) error {
	// Send is closed under the write lock once the connection is unregistered.
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return ErrConnectionClosed
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// SendJSONToConnection sends a JSON message to a specific connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.SendToConnection(conn, data)
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// GetCallCount returns the number of connections bound to a call.
func (h *Hub) GetCallCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.calls)
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ErrBufferFull is returned when the send buffer is full.
var ErrBufferFull = &BufferFullError{}

// BufferFullError represents a buffer full error.
type BufferFullError struct{}

func (e *BufferFullError) Error() string {
	return "send buffer full"
}

// ErrConnectionClosed is returned when sending on an unregistered connection.
var ErrConnectionClosed = errors.New("connection closed")
