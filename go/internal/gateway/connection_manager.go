package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/egoritak/yesbut/go/internal/game"
	"github.com/egoritak/yesbut/go/internal/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// FrameHandler receives inbound frames and connection departures
type FrameHandler interface {
	Handle(playerID string, frame []byte)
	Disconnect(playerID string)
}

// ConnectionManager manages WebSocket connections and delivers game events.
// It implements game.Notifier: room membership changes, room broadcasts and
// targeted messages all travel through one ordered channel drained by a
// single goroutine, so clients see them in the order sessions emitted them.
type ConnectionManager struct {
	// Connections by player id, and room pools by room code
	connections     map[string]*Connection
	roomConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig

	handler FrameHandler

	// Outbound traffic, in emission order
	broadcastCh chan outbound
	done        chan struct{}
	stopOnce    sync.Once
}

// Connection represents a WebSocket connection to a client. Its ID is the
// player's identity for the lifetime of the connection.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	// Connection metadata
	ConnectedAt time.Time
	LastPing    time.Time

	closed    chan struct{}
	closeOnce sync.Once
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	QueueSize       int
	CheckOrigin     func(r *http.Request) bool
}

type outboundKind uint8

const (
	kindBroadcast outboundKind = iota
	kindSend
	kindSubscribe
	kindUnsubscribe
)

// outbound is one queued delivery or membership change
type outbound struct {
	Kind     outboundKind
	Room     string
	PlayerID string
	Event    game.Event
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		QueueSize:       4096,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		connections:     make(map[string]*Connection),
		roomConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan outbound, config.QueueSize),
		done:        make(chan struct{}),
	}
}

// SetHandler installs the receiver of inbound frames. Must be called
// before the first connection is accepted.
func (cm *ConnectionManager) SetHandler(h FrameHandler) {
	cm.handler = h
}

// Start processes outbound traffic until ctx is cancelled
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.stop()
			return
		case message := <-cm.broadcastCh:
			cm.handleOutbound(message)
		}
	}
}

func (cm *ConnectionManager) stop() {
	cm.stopOnce.Do(func() {
		close(cm.done)

		cm.mu.RLock()
		conns := make([]*Connection, 0, len(cm.connections))
		for _, c := range cm.connections {
			conns = append(conns, c)
		}
		cm.mu.RUnlock()

		for _, c := range conns {
			c.close()
		}
	})
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and assigns
// it a fresh player identity
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := time.Now()
	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		ConnectedAt: now,
		LastPing:    now,
		closed:      make(chan struct{}),
	}

	cm.registerConnection(connection)
	// Queued ahead of anything the client's first frame can trigger
	cm.Send(connection.ID, game.Connected{PlayerID: connection.ID})

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")

	return connection, nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn.ID] = conn

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// unregisterConnection removes a connection from every pool and tells the
// handler the player is gone. Safe to call more than once.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	current, exists := cm.connections[conn.ID]
	if !exists || current != conn {
		cm.mu.Unlock()
		conn.close()
		return
	}
	delete(cm.connections, conn.ID)
	for code, pool := range cm.roomConnections {
		delete(pool, conn)
		// Clean up empty room pools
		if len(pool) == 0 {
			delete(cm.roomConnections, code)
		}
	}
	cm.mu.Unlock()

	conn.close()

	log.Info().
		Str("connection_id", conn.ID).
		Dur("connected_for", time.Since(conn.ConnectedAt)).
		Msg("connection unregistered")

	if cm.handler != nil {
		cm.handler.Disconnect(conn.ID)
	}
}

func (cm *ConnectionManager) enqueue(msg outbound) {
	select {
	case cm.broadcastCh <- msg:
	case <-cm.done:
	}
}

// Subscribe adds the player's connection to a room pool
func (cm *ConnectionManager) Subscribe(playerID, code string) {
	cm.enqueue(outbound{Kind: kindSubscribe, Room: code, PlayerID: playerID})
}

// Unsubscribe removes the player's connection from a room pool
func (cm *ConnectionManager) Unsubscribe(playerID, code string) {
	cm.enqueue(outbound{Kind: kindUnsubscribe, Room: code, PlayerID: playerID})
}

// Broadcast sends an event to every connection in a room
func (cm *ConnectionManager) Broadcast(code string, ev game.Event) {
	cm.enqueue(outbound{Kind: kindBroadcast, Room: code, Event: ev})
}

// Send sends an event to a single player
func (cm *ConnectionManager) Send(playerID string, ev game.Event) {
	cm.enqueue(outbound{Kind: kindSend, PlayerID: playerID, Event: ev})
}

// handleOutbound applies one queued message
func (cm *ConnectionManager) handleOutbound(message outbound) {
	switch message.Kind {
	case kindSubscribe:
		cm.mu.Lock()
		if conn, ok := cm.connections[message.PlayerID]; ok {
			if cm.roomConnections[message.Room] == nil {
				cm.roomConnections[message.Room] = make(map[*Connection]bool)
			}
			cm.roomConnections[message.Room][conn] = true
		}
		cm.mu.Unlock()
		return
	case kindUnsubscribe:
		cm.mu.Lock()
		if pool, ok := cm.roomConnections[message.Room]; ok {
			if conn, ok := cm.connections[message.PlayerID]; ok {
				delete(pool, conn)
			}
			if len(pool) == 0 {
				delete(cm.roomConnections, message.Room)
			}
		}
		cm.mu.Unlock()
		return
	}

	// Create a snapshot of connections to avoid holding lock during delivery
	var targetConnections []*Connection
	cm.mu.RLock()
	if message.Kind == kindSend {
		if conn, ok := cm.connections[message.PlayerID]; ok {
			targetConnections = append(targetConnections, conn)
		}
	} else {
		for conn := range cm.roomConnections[message.Room] {
			targetConnections = append(targetConnections, conn)
		}
	}
	cm.mu.RUnlock()

	if len(targetConnections) == 0 {
		return
	}

	// Marshal the event once
	eventData, err := protocol.Encode(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targetConnections {
		select {
		case conn.Send <- eventData:
		case <-conn.closed:
		default:
			// Connection is slow/dead, close it; its read pump cleans up
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			conn.close()
		}
	}

	log.Debug().
		Str("event_type", string(message.Event.Type())).
		Str("room", message.Room).
		Int("connections", len(targetConnections)).
		Msg("event delivered")
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	roomCounts := make(map[string]int)
	for code, connections := range cm.roomConnections {
		roomCounts[code] = len(connections)
	}

	return map[string]interface{}{
		"total_connections": len(cm.connections),
		"active_rooms":      len(cm.roomConnections),
		"room_connections":  roomCounts,
	}
}

// close shuts the socket once; both pumps exit afterwards
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.Conn.Close()
	})
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.closed:
			return
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer c.Manager.unregisterConnection(c)

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		if c.Manager.handler != nil {
			c.Manager.handler.Handle(c.ID, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
