package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Cross-origin policy is enforced by the CORS layer and the session
	// token; the websocket handshake accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

// streamCommand is a client frame on the stream socket.
type streamCommand struct {
	Action  string   `json:"action"`
	Tickers []string `json:"tickers"`
}

type streamAck struct {
	Type    string   `json:"type"`
	Action  string   `json:"action"`
	Tickers []string `json:"tickers"`
}

// wsClient adapts one websocket connection to the hub's Client contract.
// Writes go through a buffered channel so a slow consumer never blocks
// the poll pipeline; a full buffer drops the connection.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func (c *wsClient) SendBytes(b []byte) {
	select {
	case c.send <- b:
	case <-c.done:
	default:
		// Buffer full; the write pump will notice the close.
		c.Close()
	}
}

func (c *wsClient) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// handleStream upgrades the connection and relays subscribe/unsubscribe
// commands to the hub. Quote frames arrive from the poll pipeline via
// hub.HandleQuote.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		fmt.Printf("[STREAM] Upgrade failed: %v\n", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	go s.writePump(client)
	s.readPump(client)
}

func (s *Server) readPump(c *wsClient) {
	defer func() {
		s.deps.Hub.Unregister(c)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				fmt.Printf("[STREAM] Read error: %v\n", err)
			}
			return
		}

		var cmd streamCommand
		if err := json.Unmarshal(msg, &cmd); err != nil {
			continue
		}

		var changed []string
		switch cmd.Action {
		case "subscribe":
			changed = s.deps.Hub.Subscribe(c, cmd.Tickers)
		case "unsubscribe":
			changed = s.deps.Hub.Unsubscribe(c, cmd.Tickers)
		default:
			continue
		}

		ack, err := json.Marshal(streamAck{Type: "ack", Action: cmd.Action, Tickers: changed})
		if err == nil {
			c.SendBytes(ack)
		}
	}
}

func (s *Server) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
