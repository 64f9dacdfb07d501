package websocket

import (
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout   = 10 * time.Second
	idleTimeout    = 60 * time.Second
	pingInterval   = idleTimeout * 9 / 10
	readLimitBytes = 4 << 10 // listeners only send control frames
	sendQueueSize  = 256
)

// Client is one listener connection. Events flow hub -> send -> socket.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *Client) extendDeadline(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
}

// listen consumes inbound frames until the peer goes away, then
// unregisters. Reading keeps pong and close handling alive.
func (c *Client) listen() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimitBytes)
	c.extendDeadline("")
	c.conn.SetPongHandler(c.extendDeadline)

	for {
		_, _, err := c.conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			c.hub.log.Warn("ws read error", "client", c.ID, "error", err)
		}
		return
	}
}

// deliver writes queued events and keepalive pings. A closed send channel
// means the hub dropped this client.
func (c *Client) deliver() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	write := func(kind int, payload []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return c.conn.WriteMessage(kind, payload)
	}

	for {
		select {
		case msg, open := <-c.send:
			if !open {
				write(websocket.CloseMessage, nil)
				return
			}
			if err := write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Handler upgrades requests and registers the connection with hub. An empty
// origin list accepts every origin. Clients may pick their id with
// ?clientId=, which lets a reconnecting station replace its old socket.
func Handler(hub *Hub, allowedOrigins []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn("ws upgrade failed", "error", err)
			return
		}

		id := r.URL.Query().Get("clientId")
		if id == "" {
			id = "web_" + uuid.NewString()
		}
		c := &Client{ID: id, hub: hub, conn: conn, send: make(chan []byte, sendQueueSize)}
		if !hub.add(c) {
			conn.Close()
			return
		}
		go c.deliver()
		go c.listen()
	}
}
