package ws

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/inkrush/inkrush-backend/internal/domain"
)

// Emit writes directly to this client's own send buffer, used for
// replies that only ever target the originating socket (acks, errors).
func (c *Client) Emit(msgType string, data any) {
	payload := envelope(msgType, data)
	if payload == nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.log.Warnw("[ws] send buffer full, dropping slow client", "socket", c.socketID)
	}
}

func (c *Client) emitError(kind domain.ErrorKind, details string) {
	c.Emit("error", domain.ErrorData{Message: string(kind), Details: details})
}

// readPump pumps inbound frames to Dispatcher.Handle until the
// connection errors or closes.
func (c *Client) readPump(d *Dispatcher) {
	defer func() {
		d.onDisconnect(c)
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.log.Infow("[ws] read closed", "socket", c.socketID, "error", err)
			return
		}
		d.handle(c, raw)
	}
}

// writePump drains c.send to the socket and keeps the connection alive
// with periodic pings; exits when send is closed by unregister.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
