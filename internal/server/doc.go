// Package server implements the salon relay: a multi-room WebSocket chat
// server where clients pick a room, exchange messages with the other
// occupants of that room, and receive notifications when someone joins or
// leaves.
//
// The implementation is organized into specialized files for the wire
// protocol, room registry, hub event loop, clients, configuration, routing,
// and HTTP handlers to keep the codebase maintainable and testable as the
// project grows.
package server
