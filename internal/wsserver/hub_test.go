package wsserver

import (
	"context"
	"encoding/json"
	"net"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const testListenAddr = "127.0.0.1:0"

// waitForCondition polls fn every 10ms until it returns true or the timeout
// expires.
func waitForCondition(t *testing.T, timeout time.Duration, fn func() bool) bool {
	t.Helper()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case <-ticker.C:
			if fn() {
				return true
			}
		case <-deadline.C:
			return false
		}
	}
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	if !waitForCondition(t, 2*time.Second, func() bool { return hub.ClientCount() == n }) {
		t.Fatalf("timed out waiting for %d clients (have %d)", n, hub.ClientCount())
	}
}

func waitForSubscription(t *testing.T, hub *Hub, event string) {
	t.Helper()
	if !waitForCondition(t, 2*time.Second, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for c := range hub.clients {
			c.mu.RLock()
			ok := c.subscribed[event]
			c.mu.RUnlock()
			if ok {
				return true
			}
		}
		return false
	}) {
		t.Fatalf("timed out waiting for subscription to %q", event)
	}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(HubOptions{Addr: testListenAddr})
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = hub.Stop() })
	return hub
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	u, err := url.Parse(hub.URL())
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", hub.URL(), err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() error = %v", err)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	env, err := DecodeEvent(msg)
	if err != nil {
		t.Fatalf("DecodeEvent(%s) error = %v", msg, err)
	}
	return env
}

func TestStartAndStop(t *testing.T) {
	hub := NewHub(HubOptions{})
	if hub.URL() != "" {
		t.Fatalf("URL() before Start = %q", hub.URL())
	}
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !strings.HasPrefix(hub.URL(), "ws://127.0.0.1:") || !strings.HasSuffix(hub.URL(), "/ws") {
		t.Fatalf("URL() = %q", hub.URL())
	}
	if err := hub.Start(context.Background()); err == nil {
		t.Fatal("second Start() should fail")
	}
	if err := hub.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := hub.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestStartPortConflict(t *testing.T) {
	ln, err := net.Listen("tcp", testListenAddr)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()

	hub := NewHub(HubOptions{Addr: ln.Addr().String()})
	if err := hub.Start(context.Background()); err == nil {
		_ = hub.Stop()
		t.Fatal("Start() on a taken port should fail")
	}
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	hub := startHub(t)
	a := dialHub(t, hub)
	b := dialHub(t, hub)
	waitForClients(t, hub, 2)

	hub.Broadcast("shortcuts-updated", map[string]int{"version": 3})

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		if env.Event != "shortcuts-updated" {
			t.Fatalf("Event = %q", env.Event)
		}
		var data map[string]int
		if err := json.Unmarshal(env.Data, &data); err != nil || data["version"] != 3 {
			t.Fatalf("Data = %s (%v)", env.Data, err)
		}
	}
}

func TestSubscriptionFiltersEvents(t *testing.T) {
	hub := startHub(t)
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	if err := conn.WriteJSON(controlMsg{Action: subscribeAction, Events: []string{"prompt:completed"}}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	waitForSubscription(t, hub, "prompt:completed")

	hub.Broadcast("shortcuts-updated", nil)
	hub.Broadcast("prompt:completed", map[string]string{"request_id": "r1"})

	if env := readEnvelope(t, conn); env.Event != "prompt:completed" {
		t.Fatalf("first delivered event = %q, want prompt:completed", env.Event)
	}

	if err := conn.WriteJSON(controlMsg{Action: unsubscribeAction, Events: []string{"prompt:completed"}}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if !waitForCondition(t, 2*time.Second, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		for c := range hub.clients {
			c.mu.RLock()
			n := len(c.subscribed)
			c.mu.RUnlock()
			if n != 0 {
				return false
			}
		}
		return true
	}) {
		t.Fatal("unsubscribe was not applied")
	}
	hub.Broadcast("shortcuts-updated", nil)
	if env := readEnvelope(t, conn); env.Event != "shortcuts-updated" {
		t.Fatalf("event after unsubscribe = %q", env.Event)
	}
}

func TestInvalidControlMessages(t *testing.T) {
	hub := startHub(t)
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{name: "invalid json", payload: "{not json", want: "invalid JSON"},
		{name: "unknown action", payload: `{"action":"explode"}`, want: "unknown action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.payload)); err != nil {
				t.Fatalf("WriteMessage() error = %v", err)
			}
			if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
				t.Fatalf("SetReadDeadline() error = %v", err)
			}
			var got errorMsg
			if err := conn.ReadJSON(&got); err != nil {
				t.Fatalf("ReadJSON() error = %v", err)
			}
			if got.Type != "error" || !strings.Contains(got.Message, tt.want) {
				t.Fatalf("error response = %#v, want message containing %q", got, tt.want)
			}
		})
	}
}

func TestClientDisconnectIsRemoved(t *testing.T) {
	hub := startHub(t)
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	_ = conn.Close()
	waitForClients(t, hub, 0)

	// Broadcasting with nobody connected is a no-op.
	hub.Broadcast("shortcuts-updated", nil)
}

func TestStopDisconnectsClients(t *testing.T) {
	hub := NewHub(HubOptions{Addr: testListenAddr})
	if err := hub.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	if err := hub.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() error = %v", err)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("ReadMessage() after Stop should fail")
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("ClientCount() after Stop = %d", hub.ClientCount())
	}
}

func TestBroadcastEncodingFailureIsDropped(t *testing.T) {
	hub := startHub(t)
	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	hub.Broadcast("bad", make(chan int))
	hub.Broadcast("good", nil)

	if env := readEnvelope(t, conn); env.Event != "good" {
		t.Fatalf("Event = %q, want good", env.Event)
	}
}
