package wsserver

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const activateDialTimeout = 2 * time.Second

// SendActivate connects to a running hub at url and asks it to bring its
// window forward.
func SendActivate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, activateDialTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("wsserver: dial %s: %w", url, err)
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return fmt.Errorf("wsserver: set write deadline: %w", err)
	}
	if err := conn.WriteJSON(controlMsg{Action: activateAction}); err != nil {
		return fmt.Errorf("wsserver: send activate: %w", err)
	}
	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		return fmt.Errorf("wsserver: close: %w", err)
	}
	return nil
}

// URLForPort returns the hub URL for a fixed localhost port.
func URLForPort(port int) string {
	return fmt.Sprintf("ws://127.0.0.1:%d/ws", port)
}
