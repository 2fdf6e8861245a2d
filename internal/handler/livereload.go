package handler

// livereload.go is the websocket side of serve mode.  Each page embeds a
// small script that connects to /livereload, says hello, and reloads the
// browser when the server says so.  The server pings each client on a
// timer and drops those that stop answering, so dead tabs don't pile up.

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gqldocs/gqldocs/internal/metrics"
)

type (
	// wsClient is one connected browser.  Reload commands are queued on
	// send; a client that cannot keep up is dropped rather than ever
	// blocking a broadcast.
	wsClient struct {
		*websocket.Conn // handle for WS communications

		send chan wsMessage
	}

	wsMessage struct {
		Command string   `json:"command"`
		Paths   []string `json:"paths,omitempty"`
	}

	// wsHub tracks the connected clients.
	wsHub struct {
		mu      sync.Mutex
		clients map[*wsClient]struct{}
		logger  *slog.Logger
		metrics *metrics.Metrics
	}
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newHub(logger *slog.Logger, m *metrics.Metrics) *wsHub {
	return &wsHub{
		clients: make(map[*wsClient]struct{}),
		logger:  logger,
		metrics: m,
	}
}

// serveWS is called in response to an HTTP request on /livereload wanting
// to upgrade to a WS.  It runs the connection's read side until the client
// goes away.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// nothing else required here as w's HTTP status has already been set
		h.logger.Warn("livereload upgrade failed", "error", err)
		return
	}
	c := &wsClient{Conn: conn, send: make(chan wsMessage, 8)}
	defer func() {
		h.hub.drop(c)
		_ = c.Close()
	}()

	if !c.hello(h.initialTimeout) {
		return
	}
	// Register before acking so a rebuild finishing right now is not
	// missed by a client that just said hello.
	h.hub.add(c)
	if c.WriteJSON(wsMessage{Command: "hello"}) != nil {
		return
	}

	go c.writeLoop(h.pingFrequency, h.pongTimeout)

	// The client only ever speaks once (the hello), so reads exist to
	// notice pongs and disconnects.  Each pong buys the connection
	// another keepalive interval.
	keepAlive := h.pingFrequency + h.pongTimeout
	_ = c.SetReadDeadline(time.Now().Add(keepAlive))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(keepAlive))
	})
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

// hello handles the initial (high level) handshake by receiving a "hello"
// message.  The ack is sent by serveWS once the client is registered.
func (c *wsClient) hello(timeout time.Duration) bool {
	_ = c.SetReadDeadline(time.Now().Add(timeout))
	var message wsMessage
	if err := c.ReadJSON(&message); err != nil || message.Command != "hello" {
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected hello"),
			time.Now().Add(time.Second))
		return false
	}
	return true
}

// writeLoop sends queued reload commands and periodic pings.  It exits
// when the send channel is closed (the hub dropped the client) or a write
// fails.
func (c *wsClient) writeLoop(pingFrequency, pongTimeout time.Duration) {
	ticker := time.NewTicker(pingFrequency)
	defer ticker.Stop()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				_ = c.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			_ = c.SetWriteDeadline(time.Now().Add(pongTimeout))
			if err := c.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(pongTimeout)); err != nil {
				return
			}
		}
	}
}

func (hb *wsHub) add(c *wsClient) {
	hb.mu.Lock()
	hb.clients[c] = struct{}{}
	n := len(hb.clients)
	hb.mu.Unlock()
	hb.metrics.LiveReloadClients(n)
}

// drop removes a client and closes its send channel.  Safe to call more
// than once for the same client.
func (hb *wsHub) drop(c *wsClient) {
	hb.mu.Lock()
	_, ok := hb.clients[c]
	delete(hb.clients, c)
	n := len(hb.clients)
	hb.mu.Unlock()
	if ok {
		close(c.send)
		hb.metrics.LiveReloadClients(n)
	}
}

// broadcast queues a reload command for every client.  A client whose
// queue is full is dropped - one stuck browser must not stall the rest.
func (hb *wsHub) broadcast(paths []string) {
	message := wsMessage{Command: "reload", Paths: paths}
	var slow []*wsClient
	hb.mu.Lock()
	n := len(hb.clients)
	for c := range hb.clients {
		select {
		case c.send <- message:
		default:
			slow = append(slow, c)
		}
	}
	hb.mu.Unlock()

	for _, c := range slow {
		hb.logger.Warn("dropping slow livereload client", "addr", c.RemoteAddr())
		hb.drop(c)
		_ = c.Close()
	}
	hb.logger.Debug("livereload broadcast", "clients", n, "changed", len(paths))
}

func (hb *wsHub) closeAll() {
	hb.mu.Lock()
	clients := make([]*wsClient, 0, len(hb.clients))
	for c := range hb.clients {
		clients = append(clients, c)
	}
	hb.mu.Unlock()

	for _, c := range clients {
		hb.drop(c)
		_ = c.Close()
	}
}
