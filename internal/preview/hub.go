// Package preview mirrors strip frames somewhere a human can look at them:
// browsers over a websocket and the local terminal.
package preview

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"libdb.so/emberglow/internal/led"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	clientBufferSize = 4
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub broadcasts every frame it is given to all connected websocket clients
// as a binary message of three bytes per LED. Slow clients miss frames
// instead of slowing down the strip.
type Hub struct {
	logger *slog.Logger
	wg     sync.WaitGroup

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

var (
	_ led.Output   = (*Hub)(nil)
	_ http.Handler = (*Hub)(nil)
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a new hub with no clients.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

// WriteFrame implements led.Output. It never blocks and never fails.
func (h *Hub) WriteFrame(_ context.Context, frame led.LEDs) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) == 0 {
		return nil
	}

	msg := append([]byte(nil), frame.AsPixels()...)
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a websocket and registers it as a client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "err", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, clientBufferSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.wg.Add(2)
	h.mu.Unlock()

	h.logger.Debug("preview client connected", "remote", r.RemoteAddr, "clients", h.ClientCount())

	go h.writePump(c)
	go h.readPump(c)
}

// Close disconnects all clients and waits for their goroutines to exit.
// Further connections are refused.
func (h *Hub) Close() error {
	h.logger.Debug("closing preview hub", "clients", h.ClientCount())

	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump discards everything the client sends. It exists to process
// control frames and to notice when the client goes away.
func (h *Hub) readPump(c *client) {
	defer h.wg.Done()
	defer h.remove(c)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("preview client read error", "err", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		h.wg.Done()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
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
