package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection bound to a hub subscription.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	sub    *Subscriber
	logger logrus.FieldLogger
}

// Serve upgrades the request and streams topics to it until either side
// goes away. A non-nil snapshot is written first so the client starts from
// the current state. It blocks for the lifetime of the connection.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, snapshot *Message, topics ...string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	sub := h.Subscribe(topics...)
	if sub == nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		return conn.Close()
	}
	if snapshot != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(snapshot); err != nil {
			h.Unsubscribe(sub)
			return conn.Close()
		}
	}
	c := &Client{hub: h, conn: conn, sub: sub, logger: h.logger.WithField("topics", topics)}
	go c.writePump()
	c.readPump()
	return nil
}

// readPump only watches for disconnects; clients never send commands.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c.sub)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.WithError(err).Debug("websocket closed")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.sub.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame.Payload); err != nil {
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
