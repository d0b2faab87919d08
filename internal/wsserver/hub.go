package wsserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// writeDeadline bounds a single write; a window frozen longer is dropped.
const writeDeadline = 5 * time.Second

// readDeadline allows ~3 missed pings before a client is considered dead.
const readDeadline = 90 * time.Second

const pingInterval = 30 * time.Second

// maxReadMessageSize limits client control messages, which are tiny.
const maxReadMessageSize = 32 * 1024

var wsUpgrader = websocket.Upgrader{
	// The server binds to 127.0.0.1 only; WebView origins vary by platform.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4 * 1024,
}

// HubOptions configures the WebSocket server.
type HubOptions struct {
	// Addr is the listen address. Use "127.0.0.1:0" for OS-assigned port.
	Addr       string
	// OnActivate runs on the client's read goroutine when it sends
	// {"action":"activate"}. Nil ignores the request.
	OnActivate func()
}

// client is one connected window.
//
// writeMu serializes WriteMessage calls (gorilla/websocket does not allow
// concurrent writers). mu guards subscribed. Never hold mu when acquiring
// writeMu.
type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu         sync.RWMutex
	subscribed map[string]bool
}

func (c *client) wants(event string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribed) == 0 || c.subscribed[event]
}

// Hub broadcasts backend events to every connected window.
//
// Write failure policy: a failed write drops that client only.
type Hub struct {
	opts HubOptions

	mu      sync.RWMutex
	clients map[*client]struct{}

	listener net.Listener
	server   *http.Server
	url      string

	closeOnce sync.Once
}

// NewHub creates a Hub. It does not listen until Start is called.
func NewHub(opts HubOptions) *Hub {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	return &Hub{
		opts:    opts,
		clients: make(map[*client]struct{}),
	}
}

// Start listens on the configured address. ctx becomes the base context of
// request handlers; the server itself stops only through Stop.
// Start must be called once, before concurrent use.
func (h *Hub) Start(ctx context.Context) error {
	if h.server != nil {
		return fmt.Errorf("wsserver: already started")
	}

	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("wsserver: listen: %w", err)
	}
	h.listener = ln

	port := ln.Addr().(*net.TCPAddr).Port
	h.url = URLForPort(port)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)

	h.server = &http.Server{
		Handler: mux,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if serveErr := h.server.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("[DEBUG-WS] server error", "error", serveErr)
		}
	}()

	slog.Info("[DEBUG-WS] server started", "url", h.url)
	return nil
}

// Stop closes every client and shuts the server down. Idempotent.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		clients := h.clients
		h.clients = make(map[*client]struct{})
		h.mu.Unlock()

		for c := range clients {
			h.closeConn(c.conn, "hub stopping")
		}

		if h.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.server.Shutdown(shutdownCtx); err != nil {
				stopErr = fmt.Errorf("wsserver: shutdown: %w", err)
			}
		}
		slog.Info("[DEBUG-WS] server stopped")
	})
	return stopErr
}

// URL returns the WebSocket URL, or "" before Start.
func (h *Hub) URL() string {
	return h.url
}

// ClientCount reports how many windows are connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends event to every client subscribed to it. Encoding errors
// are logged and the event is dropped.
func (h *Hub) Broadcast(event string, payload any) {
	frame, err := EncodeEvent(event, payload)
	if err != nil {
		slog.Warn("[DEBUG-WS] failed to encode event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.wants(event) {
			continue
		}
		if err := h.write(c, websocket.TextMessage, frame); err != nil {
			slog.Warn("[DEBUG-WS] write failed, dropping client", "event", event, "error", err)
			h.drop(c, "write error in Broadcast")
		}
	}
}

func (h *Hub) write(c *client, msgType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	err := c.conn.WriteMessage(msgType, data)
	if clearErr := c.conn.SetWriteDeadline(time.Time{}); clearErr != nil {
		slog.Debug("[DEBUG-WS] clear write deadline failed (non-fatal)", "error", clearErr)
	}
	return err
}

// drop removes c and closes its connection. Safe to call more than once.
func (h *Hub) drop(c *client, reason string) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	h.closeConn(c.conn, reason)
}

// closeConn tolerates double close; gorilla returns an error and nothing else.
func (h *Hub) closeConn(conn *websocket.Conn, reason string) {
	if closeErr := conn.Close(); closeErr != nil {
		slog.Debug("[DEBUG-WS] connection close", "reason", reason, "error", closeErr)
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[DEBUG-WS] upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxReadMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		slog.Warn("[DEBUG-WS] SetReadDeadline failed on new connection", "error", err)
		h.closeConn(conn, "initial SetReadDeadline failure")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	c := &client{conn: conn, subscribed: make(map[string]bool)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	slog.Info("[DEBUG-WS] client connected", "remoteAddr", conn.RemoteAddr())

	pingDone := make(chan struct{})
	go h.pingLoop(c, pingDone)

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] wsserver handleWS recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}
		close(pingDone)
		h.drop(c, "read pump exit")
		slog.Info("[DEBUG-WS] client disconnected")
	}()

	for {
		msgType, msg, readErr := conn.ReadMessage()
		if readErr != nil {
			if websocket.IsUnexpectedCloseError(readErr, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("[DEBUG-WS] read error", "error", readErr)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var ctl controlMsg
		if jsonErr := json.Unmarshal(msg, &ctl); jsonErr != nil {
			slog.Debug("[DEBUG-WS] invalid JSON from client", "error", jsonErr)
			h.sendError(c, fmt.Sprintf("invalid JSON: %s", jsonErr))
			continue
		}
		h.handleControl(c, ctl)
	}
}

func (h *Hub) pingLoop(c *client, done <-chan struct{}) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] wsserver pingLoop recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			h.drop(c, "pingLoop panic recovery")
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := h.write(c, websocket.PingMessage, nil); err != nil {
				slog.Debug("[DEBUG-WS] ping failed, connection likely dead", "error", err)
				h.drop(c, "ping failure")
				return
			}
		}
	}
}

func (h *Hub) handleControl(c *client, msg controlMsg) {
	switch msg.Action {
	case subscribeAction, unsubscribeAction:
	case activateAction:
		slog.Debug("[DEBUG-WS] activation requested")
		if h.opts.OnActivate != nil {
			h.opts.OnActivate()
		}
		return
	default:
		slog.Debug("[DEBUG-WS] unknown action", "action", msg.Action)
		h.sendError(c, fmt.Sprintf("unknown action: %q", msg.Action))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, event := range msg.Events {
		if event == "" {
			continue
		}
		if msg.Action == subscribeAction {
			c.subscribed[event] = true
		} else {
			delete(c.subscribed, event)
		}
	}
	slog.Debug("[DEBUG-WS] subscriptions updated", "action", msg.Action, "count", len(c.subscribed))
}

func (h *Hub) sendError(c *client, message string) {
	payload, err := json.Marshal(errorMsg{Type: "error", Message: message})
	if err != nil {
		slog.Debug("[DEBUG-WS] failed to marshal error message", "error", err)
		return
	}
	if err := h.write(c, websocket.TextMessage, payload); err != nil {
		slog.Debug("[DEBUG-WS] failed to send error to client", "error", err)
		h.drop(c, "write error in sendError")
	}
}
