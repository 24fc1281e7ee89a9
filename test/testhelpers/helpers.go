// Package testhelpers provides common utilities and helper functions for
// testing the salon relay.
//
// This package contains reusable test utilities that are shared across unit
// and integration tests. It provides functions for creating test servers,
// dialing WebSocket clients, speaking the salon event protocol, and asserting
// response properties to reduce code duplication in test files.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Frame mirrors the wire envelope for both inbound and outbound messages so
// tests can assert on any event shape with one type.
type Frame struct {
	Event    string `json:"event"`
	Room     string `json:"room,omitempty"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// WebSocketURL converts an httptest server URL into the ws:// address of the
// relay's upgrade endpoint.
func WebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// ConnectWebSocket establishes a WebSocket connection to the given URL,
// presenting origin in the handshake. It returns the connection or an error
// if the handshake fails.
func ConnectWebSocket(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendEvent marshals the frame and sends it as a JSON text message.
func SendEvent(conn *websocket.Conn, frame Frame) error {
	return conn.WriteJSON(frame)
}

// SendChangeRoom sends a changeRoom event for the given room and username.
func SendChangeRoom(conn *websocket.Conn, room, username string) error {
	return SendEvent(conn, Frame{Event: "changeRoom", Room: room, Username: username})
}

// SendChat sends a chat event carrying the username and message text.
func SendChat(conn *websocket.Conn, username, message string) error {
	return SendEvent(conn, Frame{Event: "chat", Username: username, Message: message})
}

// SendExitUser sends an exitUser event for the given username.
func SendExitUser(conn *websocket.Conn, username string) error {
	return SendEvent(conn, Frame{Event: "exitUser", Username: username})
}

// ReceiveFrames reads one WebSocket message and decodes the newline-batched
// frames it contains.
func ReceiveFrames(conn *websocket.Conn, timeout time.Duration) ([]Frame, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var frames []Frame
	for _, line := range strings.Split(string(raw), "\n") {
		if line == "" {
			continue
		}
		var frame Frame
		if err := json.Unmarshal([]byte(line), &frame); err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// ExpectFrame reads frames until one matches want or the timeout expires.
// Frames that arrive before the match are discarded.
func ExpectFrame(t *testing.T, conn *websocket.Conn, want Frame, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	var last *Frame
	for time.Now().Before(deadline) {
		frames, err := ReceiveFrames(conn, time.Until(deadline))
		if err != nil {
			break
		}
		for i := range frames {
			if frames[i] == want {
				return
			}
			last = &frames[i]
		}
	}

	if last != nil {
		t.Fatalf("Expected frame %+v not received; last frame was %+v", want, *last)
	}
	t.Fatalf("Expected frame %+v not received", want)
}

// ExpectNoFrame fails the test if any frame arrives before the timeout.
func ExpectNoFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	frames, err := ReceiveFrames(conn, timeout)
	if err == nil {
		t.Fatalf("Expected no frame, but received %+v", frames)
	}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// AssertStatusCode checks if the HTTP response has the expected status code.
// It fails the test with a descriptive error message if the status codes don't match.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
// It fails the test with a descriptive error message if the content types don't match.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to execute request: %v", err)
	}

	return resp
}
