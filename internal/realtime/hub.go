// Package realtime implements RealtimeHub: the authenticated
// WebSocket fan-out plane, grounded on original_source's
// ChatWebSocketManager in src/server/websocket.rs (connection/
// user_connections registries, 30s auth timeout, add_connection),
// wiring gorilla/websocket to an authenticated, registry-backed
// connection.
package realtime

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ruggine/chatcore/internal/store"
	"github.com/ruggine/chatcore/internal/wire"
)

// authTimeout is the window a connection has to send its auth frame
// before the server closes it.
const authTimeout = 30 * time.Second

// Validator resolves a session token to its owning user id. Satisfied
// by *session.Manager without realtime importing the session package.
type Validator func(token string) (userID string, err error)

// connection is one authenticated WebSocket peer.
type connection struct {
	clientID string
	userID   string
	conn     *websocket.Conn
	queue    *outboundQueue
}

// Hub is the RealtimeHub: it owns the connections and
// user_connections registries and routes outbound frames to them.
// Single-connection-per-user is the documented invariant: a new login
// displaces the prior connection for that user.
type Hub struct {
	validate Validator
	store    *store.Store

	upgrader websocket.Upgrader

	mu              sync.RWMutex
	connections     map[string]*connection // client_id -> connection
	userConnections map[string]string      // user_id -> client_id
}

// New builds a Hub. validate is used to authenticate the single frame
// a peer must send while AwaitingAuth; st resolves group membership
// at fan-out time.
func New(validate Validator, st *store.Store) *Hub {
	return &Hub{
		validate:        validate,
		store:           st,
		upgrader:        websocket.Upgrader{},
		connections:     make(map[string]*connection),
		userConnections: make(map[string]string),
	}
}

// ServeHTTP upgrades the request to a WebSocket and runs the
// connection's state machine: AwaitingAuth -> Authenticated ->
// Terminated.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("realtime: upgrade failed: %v", err)
		return
	}

	userID, ok := h.awaitAuth(conn)
	if !ok {
		conn.Close()
		return
	}

	c := h.register(userID, conn)
	defer h.unregister(c)

	go h.writeLoop(c)
	h.readLoop(c)
}

// awaitAuth blocks for at most authTimeout waiting for the single auth
// frame, validates it, and answers with an AuthResponse. It returns
// the authenticated user id on success.
func (h *Hub) awaitAuth(conn *websocket.Conn) (string, bool) {
	conn.SetReadDeadline(time.Now().Add(authTimeout))

	msgType, data, err := conn.ReadMessage()
	if err != nil || msgType != websocket.TextMessage {
		h.writeAuthFailure(conn, "auth timeout or invalid frame")
		return "", false
	}

	var req wire.AuthRequest
	if err := json.Unmarshal(data, &req); err != nil || req.MessageType != "auth" {
		h.writeAuthFailure(conn, "expected an auth message")
		return "", false
	}

	userID, err := h.validate(req.SessionToken)
	if err != nil {
		h.writeAuthFailure(conn, "invalid or expired session")
		return "", false
	}

	conn.SetReadDeadline(time.Time{})
	return userID, h.writeAuthSuccess(conn, userID)
}

func (h *Hub) writeAuthSuccess(conn *websocket.Conn, userID string) bool {
	resp := wire.AuthResponse{MessageType: "auth_response", Success: true, UserID: userID}
	return conn.WriteJSON(resp) == nil
}

func (h *Hub) writeAuthFailure(conn *websocket.Conn, reason string) {
	resp := wire.AuthResponse{MessageType: "auth_response", Success: false, Error: reason}
	conn.WriteJSON(resp)
}

// register adds c to both registries, displacing any prior connection
// held by the same user.
func (h *Hub) register(userID string, conn *websocket.Conn) *connection {
	c := &connection{
		clientID: uuid.New().String(),
		userID:   userID,
		conn:     conn,
		queue:    newOutboundQueue(),
	}

	h.mu.Lock()
	if prevClientID, ok := h.userConnections[userID]; ok {
		if prev, ok := h.connections[prevClientID]; ok {
			prev.queue.close()
			prev.conn.Close()
			delete(h.connections, prevClientID)
		}
	}
	h.connections[c.clientID] = c
	h.userConnections[userID] = c.clientID
	h.mu.Unlock()

	return c
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	if h.userConnections[c.userID] == c.clientID {
		delete(h.userConnections, c.userID)
	}
	delete(h.connections, c.clientID)
	h.mu.Unlock()

	c.queue.close()
	c.conn.Close()
}

// writeLoop drains c's outbound queue and writes each frame as JSON.
// A WebSocket connection in gorilla has exactly one writer at a time;
// this goroutine is that writer.
func (h *Hub) writeLoop(c *connection) {
	for {
		frame, ok := c.queue.pop()
		if !ok {
			return
		}
		if err := c.conn.WriteJSON(frame); err != nil {
			return
		}
	}
}

// readLoop exists to detect peer close/error; there are no
// client-to-server data frames once a connection is authenticated.
func (h *Hub) readLoop(c *connection) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

var errNotConnected = errors.New("realtime: user not connected")

// SendToUser enqueues frame for userID's connection, if any.
func (h *Hub) SendToUser(userID string, frame wire.DataFrame) error {
	h.mu.RLock()
	clientID, ok := h.userConnections[userID]
	var c *connection
	if ok {
		c = h.connections[clientID]
	}
	h.mu.RUnlock()

	if c == nil {
		return errNotConnected
	}
	c.queue.push(frame)
	return nil
}

// SendToGroup enqueues frame for every current member of groupID
// except excludeUserID, joining against the GroupMember table at
// fan-out time rather than broadcasting to every connection.
func (h *Hub) SendToGroup(groupID string, frame wire.DataFrame, excludeUserID string) error {
	members, err := h.store.GroupMemberIDs(groupID)
	if err != nil {
		return err
	}
	for _, userID := range members {
		if userID == excludeUserID {
			continue
		}
		h.SendToUser(userID, frame) //nolint:errcheck // absent peers are not errors
	}
	return nil
}

// Broadcast enqueues frame for every connected user except
// excludeUserID, used for the "system" and "notifications" channels.
func (h *Hub) Broadcast(frame wire.DataFrame, excludeUserID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for userID, clientID := range h.userConnections {
		if userID == excludeUserID {
			continue
		}
		if c, ok := h.connections[clientID]; ok {
			c.queue.push(frame)
		}
	}
}
