// Package wsserver mirrors backend events to secondary windows over a
// localhost WebSocket.
//
// # Protocol
//
// Server to client: one JSON text frame per event,
//
//	{"event": "shortcuts-updated", "data": {...}}
//
// Client to server: subscription control,
//
//	{"action": "subscribe", "events": ["prompt:completed"]}
//	{"action": "activate"}
//
// A client with no subscriptions receives every event. "activate" asks the
// running instance to bring its window forward; a second launch sends it
// before exiting.
package wsserver

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	subscribeAction   = "subscribe"
	unsubscribeAction = "unsubscribe"
	activateAction    = "activate"
)

// Envelope is the JSON frame carrying one event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// controlMsg is a request from a client.
type controlMsg struct {
	Action string   `json:"action"`
	Events []string `json:"events,omitempty"`
}

// errorMsg is sent back to a client whose request could not be processed.
type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

var errEmptyEventName = errors.New("wsserver: event name must not be empty")

// EncodeEvent builds the text frame for event. A nil payload omits "data".
func EncodeEvent(event string, payload any) ([]byte, error) {
	if event == "" {
		return nil, errEmptyEventName
	}
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("wsserver: encode %s: %w", event, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// DecodeEvent parses a frame produced by EncodeEvent.
func DecodeEvent(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("wsserver: decode event: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, errEmptyEventName
	}
	return env, nil
}
