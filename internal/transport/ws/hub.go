// Package ws implements the websocket transport: connection upgrade,
// the per-room client registry, and the event dispatch loop that turns
// inbound messages into engine/session/resync calls. It is the sole
// implementation of engine.Broadcaster — nothing upstream of this
// package touches a *websocket.Conn.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// Client wraps one live connection. socketID is a random per-connection
// id; userID/roomCode are set once the join_room handshake completes.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	log    *zap.SugaredLogger

	mu       sync.RWMutex
	socketID string
	roomCode string
	userID   string
	username string
}

func (c *Client) RoomCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}

func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

func (c *Client) bind(roomCode, userID, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode, c.userID, c.username = roomCode, userID, username
}

// Hub is the process-local registry of live clients, keyed by room then
// socket id. It is the concrete Broadcaster the engine depends on.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client // roomCode -> socketID -> client
	log   *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{rooms: make(map[string]map[string]*Client), log: log}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[c.roomCode]
	if room == nil {
		room = make(map[string]*Client)
		h.rooms[c.roomCode] = room
	}
	room[c.socketID] = c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[c.roomCode]
	if room == nil {
		return
	}
	if cur, ok := room[c.socketID]; ok && cur == c {
		delete(room, c.socketID)
		close(c.send)
	}
	if len(room) == 0 {
		delete(h.rooms, c.roomCode)
	}
}

func envelope(msgType string, data any) []byte {
	b, err := json.Marshal(domain.Message[any]{Type: msgType, Data: data})
	if err != nil {
		return nil
	}
	return b
}

func (h *Hub) deliver(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		h.log.Warnw("[ws] send buffer full, dropping slow client", "socket", c.socketID)
	}
}

// BroadcastToRoom implements engine.Broadcaster.
func (h *Hub) BroadcastToRoom(roomCode string, msgType string, data any) {
	payload := envelope(msgType, data)
	if payload == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[roomCode] {
		h.deliver(c, payload)
	}
}

// BroadcastToRoomExcept implements engine.Broadcaster.
func (h *Hub) BroadcastToRoomExcept(roomCode, exceptUserID, msgType string, data any) {
	payload := envelope(msgType, data)
	if payload == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[roomCode] {
		if c.UserID() == exceptUserID {
			continue
		}
		h.deliver(c, payload)
	}
}

// BroadcastToRoomExceptSockets skips both the sender and any socket
// currently mid-resync, so a live drawing_data frame never reaches a
// socket that's still catching up on a snapshot.
func (h *Hub) BroadcastToRoomExceptSockets(roomCode string, exceptSocketIDs map[string]bool, msgType string, data any) {
	payload := envelope(msgType, data)
	if payload == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for socketID, c := range h.rooms[roomCode] {
		if exceptSocketIDs[socketID] {
			continue
		}
		h.deliver(c, payload)
	}
}

// SendToUser implements engine.Broadcaster.
func (h *Hub) SendToUser(roomCode, userID, msgType string, data any) {
	payload := envelope(msgType, data)
	if payload == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[roomCode] {
		if c.UserID() == userID {
			h.deliver(c, payload)
			return
		}
	}
}

// SendToSocket delivers to one specific socket id registered under
// roomCode; a socket bound to another room is not reached.
func (h *Hub) SendToSocket(roomCode, socketID, msgType string, data any) {
	payload := envelope(msgType, data)
	if payload == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.rooms[roomCode][socketID]; ok {
		h.deliver(c, payload)
	}
}

// Evict implements session.Evictor: force-closes a socket that lost
// ownership of its (room, user) slot to a newer connection.
func (h *Hub) Evict(socketID, reason string) {
	h.mu.RLock()
	var target *Client
	for _, room := range h.rooms {
		if c, ok := room[socketID]; ok {
			target = c
			break
		}
	}
	h.mu.RUnlock()
	if target == nil {
		return
	}
	payload := envelope("error", domain.ErrorData{Message: reason})
	if payload != nil {
		h.deliver(target, payload)
	}
	_ = target.conn.Close()
}
