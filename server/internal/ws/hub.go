package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/orderflow/orderrelay/pkg/types"
	"github.com/orderflow/orderrelay/server/internal/metrics"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong response before treating the
	// connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod controls how often the server sends WebSocket ping frames.
	// Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufSize is the per-client outgoing message buffer depth.
	sendBufSize = 64
)

// GreetingOrderID tags the per-connection test message.
const GreetingOrderID = "test_connection"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins, matching the relay's permissive CORS.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Options configures a Hub.
type Options struct {
	// GreetingDelay is how long after connect the test message is sent.
	// Zero sends it immediately.
	GreetingDelay time.Duration

	// Metrics receives connection and delivery counts. May be nil.
	Metrics *metrics.Metrics
}

// Hub manages WebSocket client connections and broadcasts relay messages to
// all of them.
type Hub struct {
	opts Options

	mu      sync.RWMutex
	clients map[*client]struct{}
}

// client represents one connected WebSocket client.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub.
func New(opts Options) *Hub {
	return &Hub{
		opts:    opts,
		clients: make(map[*client]struct{}),
	}
}

// Run blocks until ctx is cancelled, then closes all active connections.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// ServeHTTP upgrades the HTTP connection to WebSocket and serves the client.
// After GreetingDelay the client alone receives a test message; from then on
// it receives every broadcast. Blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		slog.Debug("ws: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	h.register(c)
	slog.Info("ws: client connected", "client_id", c.id, "remote", r.RemoteAddr)
	defer func() {
		h.unregister(c)
		slog.Info("ws: client disconnected", "client_id", c.id)
	}()

	greet := time.AfterFunc(h.opts.GreetingDelay, func() {
		slog.Debug("ws: sending test message", "client_id", c.id)
		h.sendTo(c, greeting())
	})
	defer greet.Stop()

	go c.writePump()
	c.readPump() // blocks until connection closes
}

// Broadcast encodes env once and queues it to every connected client. It
// never blocks: a client whose buffer is full is disconnected. It returns the
// number of clients the frame was queued to.
func (h *Hub) Broadcast(env types.Envelope) (int, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return 0, fmt.Errorf("ws: encode envelope: %w", err)
	}

	var slow []*client
	delivered := 0

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("ws: client send buffer full, disconnecting", "client_id", c.id)
		h.opts.Metrics.FrameDropped()
		h.unregister(c)
	}
	h.opts.Metrics.FramesDelivered(delivered)
	return delivered, nil
}

// Count returns the number of currently connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

func greeting() []byte {
	data, _ := json.Marshal(types.NewMessage(types.NoticePayload(types.OrderNotice{
		OrderID: GreetingOrderID,
		Message: "Connection test successful",
	})))
	return data
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.opts.Metrics.ClientConnected()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		h.opts.Metrics.ClientDisconnected()
	}
}

// sendTo queues data to c alone, if c is still registered.
func (h *Hub) sendTo(c *client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	n := len(h.clients)
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	for i := 0; i < n; i++ {
		h.opts.Metrics.ClientDisconnected()
	}
}

// writePump drains the client's send channel and forwards messages to the
// WebSocket connection. It also sends periodic ping frames. Runs in its own
// goroutine per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel was closed (hub is shutting down or client removed).
				c.conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server disconnect"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads frames from the connection to process control messages (pong,
// close) and detect disconnects. Clients send no application messages.
// Blocks until the connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
