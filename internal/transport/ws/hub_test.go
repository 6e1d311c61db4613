package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(roomCode, userID, socketID string) *Client {
	return &Client{
		send:     make(chan []byte, sendBufferSize),
		log:      zap.NewNop().Sugar(),
		roomCode: roomCode,
		userID:   userID,
		socketID: socketID,
	}
}

func recvType(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case payload := <-c.send:
		var msg struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(payload, &msg))
		return msg.Type
	default:
		return ""
	}
}

func TestBroadcastToRoomReachesEveryClientInThatRoomOnly(t *testing.T) {
	h := NewHub(zap.NewNop().Sugar())
	a := newTestClient("ROOM1", "user-a", "socket-a")
	b := newTestClient("ROOM1", "user-b", "socket-b")
	other := newTestClient("ROOM2", "user-c", "socket-c")
	h.register(a)
	h.register(b)
	h.register(other)

	h.BroadcastToRoom("ROOM1", "chat_message", nil)

	assert.Equal(t, "chat_message", recvType(t, a))
	assert.Equal(t, "chat_message", recvType(t, b))
	assert.Empty(t, recvType(t, other))
}

func TestBroadcastToRoomExceptSkipsTheNamedUser(t *testing.T) {
	h := NewHub(zap.NewNop().Sugar())
	a := newTestClient("ROOM1", "user-a", "socket-a")
	b := newTestClient("ROOM1", "user-b", "socket-b")
	h.register(a)
	h.register(b)

	h.BroadcastToRoomExcept("ROOM1", "user-a", "drawer_selected", nil)

	assert.Empty(t, recvType(t, a))
	assert.Equal(t, "drawer_selected", recvType(t, b))
}

func TestBroadcastToRoomExceptSocketsSkipsResyncingSockets(t *testing.T) {
	h := NewHub(zap.NewNop().Sugar())
	a := newTestClient("ROOM1", "user-a", "socket-a")
	b := newTestClient("ROOM1", "user-b", "socket-b")
	c := newTestClient("ROOM1", "user-c", "socket-c")
	h.register(a)
	h.register(b)
	h.register(c)

	h.BroadcastToRoomExceptSockets("ROOM1", map[string]bool{"socket-a": true, "socket-b": true}, "drawing_data", nil)

	assert.Empty(t, recvType(t, a))
	assert.Empty(t, recvType(t, b))
	assert.Equal(t, "drawing_data", recvType(t, c))
}

func TestSendToUserAddressesOnlyThatUser(t *testing.T) {
	h := NewHub(zap.NewNop().Sugar())
	a := newTestClient("ROOM1", "user-a", "socket-a")
	b := newTestClient("ROOM1", "user-b", "socket-b")
	h.register(a)
	h.register(b)

	h.SendToUser("ROOM1", "user-b", "room_joined", nil)

	assert.Empty(t, recvType(t, a))
	assert.Equal(t, "room_joined", recvType(t, b))
}

func TestUnregisterRemovesClientAndDropsEmptyRoom(t *testing.T) {
	h := NewHub(zap.NewNop().Sugar())
	a := newTestClient("ROOM1", "user-a", "socket-a")
	h.register(a)

	h.unregister(a)

	h.mu.RLock()
	_, roomStillExists := h.rooms["ROOM1"]
	h.mu.RUnlock()
	assert.False(t, roomStillExists, "the last client leaving must drop the room's map entry")

	_, stillOpen := <-a.send
	assert.False(t, stillOpen, "unregister must close the client's send channel")
}

func TestSendToSocketAddressesOneSocketAcrossRoom(t *testing.T) {
	h := NewHub(zap.NewNop().Sugar())
	a := newTestClient("ROOM1", "user-a", "socket-a")
	b := newTestClient("ROOM1", "user-b", "socket-b")
	h.register(a)
	h.register(b)

	h.SendToSocket("ROOM1", "socket-b", "canvas_resume", nil)

	assert.Empty(t, recvType(t, a))
	assert.Equal(t, "canvas_resume", recvType(t, b))
}
