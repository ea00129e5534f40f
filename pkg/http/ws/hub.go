package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 256
)

// Hub tracks WebSocket connections and the rooms they follow.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID]*Connection
	rooms       map[string]map[uuid.UUID]struct{}
	logger      zerolog.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]*Connection),
		rooms:       make(map[string]map[uuid.UUID]struct{}),
		logger:      logger.With().Str("component", "ws_hub").Logger(),
	}
}

// RegisterConnection adds a connection under its ID.
func (h *Hub) RegisterConnection(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, exists := h.connections[conn.ID()]; exists && old != conn {
		old.Close()
	}
	h.connections[conn.ID()] = conn
	h.logger.Debug().Str("conn_id", conn.ID().String()).Msg("connection registered")
}

// UnregisterConnection closes a connection and removes it from every room.
func (h *Hub) UnregisterConnection(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, exists := h.connections[id]; exists {
		conn.Close()
		delete(h.connections, id)
		h.logger.Debug().Str("conn_id", id.String()).Msg("connection unregistered")
	}
	for room, members := range h.rooms {
		delete(members, id)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Join adds a connection to a room.
func (h *Hub) Join(room string, id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[uuid.UUID]struct{})
		h.rooms[room] = members
	}
	members[id] = struct{}{}
}

// BroadcastToRoom sends a message to every connection in a room and returns
// the first send error.
func (h *Hub) BroadcastToRoom(room string, msg Message) error {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.rooms[room]))
	for id := range h.rooms[room] {
		if conn, ok := h.connections[id]; ok {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	var firstErr error
	for _, conn := range targets {
		if err := conn.Send(msg); err != nil && firstErr == nil {
			firstErr = err
			h.logger.Warn().Err(err).Str("room", room).Str("conn_id", conn.ID().String()).Msg("room send failed")
		}
	}
	return firstErr
}

// CloseAll closes and forgets every connection and returns how many there were.
func (h *Hub) CloseAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.connections)
	for id, conn := range h.connections {
		conn.Close()
		delete(h.connections, id)
	}
	clear(h.rooms)
	return n
}

// Len reports registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// RoomSize reports the number of connections in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Connection represents a WebSocket connection with send queue.
type Connection struct {
	id     uuid.UUID
	conn   *websocket.Conn
	sendCh chan Message
	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

// NewConnection wraps a WebSocket connection. conn may be nil in tests that
// only exercise the send queue.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	id := uuid.New()
	return &Connection{
		id:     id,
		conn:   conn,
		sendCh: make(chan Message, sendBuffer),
		logger: logger.With().Str("conn_id", id.String()).Logger(),
	}
}

func (c *Connection) ID() uuid.UUID { return c.id }

// Outbox exposes queued messages. Only one consumer should read it.
func (c *Connection) Outbox() <-chan Message { return c.sendCh }

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.sendCh)
	if c.conn != nil {
		c.conn.Close()
	}
}

// WritePump sends queued messages and keeps the peer alive with pings.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump receives messages and calls the handler until the peer goes away.
func (c *Connection) ReadPump(handler func(Message) error) {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			break
		}

		if err := handler(msg); err != nil {
			c.logger.Warn().Err(err).Msg("message handler error")
		}
	}
}

var (
	ErrConnectionClosed   = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull      = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
