// Package server wires HTTP handlers into a ServeMux for the salon relay
// via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes. It sets up handlers for the health check, the WebSocket endpoint,
// and the browser client page, all bound to the given hub.
func SetupRoutes(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", WebSocketHandler(hub))
	mux.HandleFunc("/chat", ChatPageHandler)
	return mux
}
