package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/inkrush/inkrush-backend/internal/authtoken"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades /ws connections and spins up the read/write pumps.
// A connection is accepted unauthenticated (the handshake permits an
// unbound socket) and only gains a bound userID once its bearer token
// verifies — every state-changing event before that point is rejected
// by Dispatcher.handle's not_authenticated guard.
type Handler struct {
	hub    *Hub
	signer *authtoken.Signer
	disp   *Dispatcher
	log    *zap.SugaredLogger
}

func NewHandler(hub *Hub, signer *authtoken.Signer, disp *Dispatcher, log *zap.SugaredLogger) *Handler {
	return &Handler{hub: hub, signer: signer, disp: disp, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("[ws] upgrade failed", "error", err)
		return
	}

	c := &Client{
		hub:      h.hub,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		log:      h.log,
		socketID: uuid.NewString(),
	}

	if token := bearerToken(r); token != "" {
		if userID, username, ok := h.signer.Verify(token); ok {
			c.userID, c.username = userID, username
		}
	}

	// socketID alone keys the hub room map before join_room binds a
	// roomCode; registration happens once join_room succeeds (see
	// Dispatcher.handleJoinRoom), not here.
	go c.writePump()
	go c.readPump(h.disp)
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
		return auth[7:]
	}
	return r.URL.Query().Get("token")
}

// RouteVar extracts the {roomCode} path variable for handlers that
// need it before the websocket handshake (health/diagnostics only —
// the live protocol gets roomCode from join_room, not the URL).
func RouteVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
