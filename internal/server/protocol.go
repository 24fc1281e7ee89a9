// Package server defines the wire protocol spoken with the browser client.
// Frames are JSON text messages carrying a flat envelope; the Event field
// selects the operation. The shapes are fixed: an unmodified salon client
// must keep working against this server.
package server

import (
	"encoding/json"
	"log"
	"strings"
)

// Event names accepted from and emitted to clients.
const (
	EventChangeRoom = "changeRoom"
	EventChat       = "chat"
	EventExitUser   = "exitUser"
	EventUpdate     = "update"
)

// Notification suffixes rendered verbatim by the client.
const (
	joinedRoomSuffix = " a rejoint le salon !"
	leftRoomSuffix   = " a quitté le salon !"
)

// ClientEvent is the envelope for every frame received from a client.
// Fields that do not apply to the event stay empty: changeRoom carries Room
// and Username, chat carries Username and Message, exitUser carries Username.
type ClientEvent struct {
	Event    string `json:"event"`
	Room     string `json:"room,omitempty"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ChatMessage is relayed to the other members of the sender's room.
// The username and text are client-supplied and forwarded verbatim.
type ChatMessage struct {
	Event    string `json:"event"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Notification carries a server-generated room update as a plain string.
type Notification struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// encodeChat builds the outbound chat frame. Returns nil on encoding failure
// so the broadcast path can skip the frame instead of aborting.
func encodeChat(username, text string) []byte {
	payload, err := json.Marshal(ChatMessage{Event: EventChat, Username: username, Message: text})
	if err != nil {
		log.Printf("Error encoding chat frame: %v", err)
		return nil
	}
	return payload
}

// encodeUpdate builds the outbound update frame for a notification string.
func encodeUpdate(text string) []byte {
	payload, err := json.Marshal(Notification{Event: EventUpdate, Message: text})
	if err != nil {
		log.Printf("Error encoding update frame: %v", err)
		return nil
	}
	return payload
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
