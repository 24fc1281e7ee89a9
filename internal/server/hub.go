// Package server coordinates connection registration, room membership, and
// message fan-out for the salon relay via the Hub type.
package server

import (
	"context"
	"log"
	"sync"
	"time"
)

// Hub owns the registry and processes every session event on a single
// goroutine. Funnelling membership changes and broadcasts through one loop
// keeps the registry's two indexes consistent and delivers messages to a
// room's members in the order their events arrived.
type Hub struct {
	registry   *Registry
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// inboundEvent pairs a decoded client frame with its originating connection.
type inboundEvent struct {
	client *Client
	event  ClientEvent
}

// NewHub creates and initializes a new Hub instance with its own registry
// and channels. The returned Hub is ready to manage client connections once
// Run is started.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:   NewRegistry(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEvent),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Registry exposes the hub's membership state for inspection.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// GetRegisterChan returns the channel used for registering new clients.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// Dispatch queues a decoded client event for the hub loop. Events arriving
// after shutdown began are discarded so pump goroutines never block on a
// stopped loop.
func (h *Hub) Dispatch(c *Client, event ClientEvent) {
	select {
	case h.inbound <- inboundEvent{client: c, event: event}:
	case <-h.ctx.Done():
	}
}

// Run starts the hub's main event loop, handling client registration,
// unregistration, and session events. This method should be called in a
// separate goroutine as it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}
			h.registerClient(client)

		case client := <-h.unregister:
			h.dropClient(client)

		case in := <-h.inbound:
			h.handleSessionEvent(in.client, in.event)
		}
	}
}

// registerClient adds the connection to the registry and launches its pump
// goroutines. A client without a transport gets no pumps.
func (h *Hub) registerClient(client *Client) {
	client.closed = false
	h.registry.Add(client)
	log.Printf("Client %s registered from %s. Total clients: %d", client.id, client.addr, h.registry.ClientCount())

	if client.conn == nil {
		return
	}
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// dropClient removes the connection from the registry and closes its send
// channel. Its room membership goes with it, silently: the other members get
// no notification on a bare disconnect. Dropping twice is a no-op the second
// time.
func (h *Hub) dropClient(client *Client) {
	room, removed := h.registry.Remove(client)
	if !removed {
		return
	}
	client.closed = true
	close(client.send)

	if room != "" {
		log.Printf("Client %s from %s unregistered, evicted from %q. Total clients: %d",
			client.id, client.addr, room, h.registry.ClientCount())
	} else {
		log.Printf("Client %s from %s unregistered. Total clients: %d",
			client.id, client.addr, h.registry.ClientCount())
	}
}

// handleSessionEvent drives the per-connection state machine. Events from
// connections that already disconnected, and events with an unknown name,
// are dropped rather than treated as fatal.
func (h *Hub) handleSessionEvent(client *Client, event ClientEvent) {
	if !h.registry.Contains(client) {
		log.Printf("Dropping %q event from unregistered client %s", event.Event, client.id)
		return
	}

	switch event.Event {
	case EventChangeRoom:
		h.changeRoom(client, event.Room, event.Username)
	case EventChat:
		h.relayChat(client, event.Username, event.Message)
	case EventExitUser:
		h.announceExit(client, event.Username)
	default:
		log.Printf("Unknown event %q from client %s; dropping", event.Event, client.id)
	}
}

// changeRoom moves the client into newRoom and tells the room's other
// members about the arrival. The room left behind is not notified; clients
// that want a departure message send exitUser before switching.
func (h *Hub) changeRoom(client *Client, newRoom, username string) {
	client.name = username
	previous, ok := h.registry.Join(client, newRoom)
	if !ok {
		return
	}

	if previous == "" {
		log.Printf("Client %s (%s) joined %q", client.id, username, newRoom)
	} else {
		log.Printf("Client %s (%s) moved from %q to %q", client.id, username, previous, newRoom)
	}

	h.broadcastToRoom(newRoom, client, encodeUpdate(username+joinedRoomSuffix))
}

// relayChat forwards a chat message to the other members of the sender's
// room. A sender that never joined a room has no audience; the message is
// dropped without error.
func (h *Hub) relayChat(client *Client, username, text string) {
	room, ok := h.registry.RoomOf(client)
	if !ok {
		log.Printf("Client %s sent chat without a room; dropping", client.id)
		return
	}
	h.broadcastToRoom(room, client, encodeChat(username, text))
}

// announceExit tells the room's other members that the user left. Membership
// stays in place: the client follows exitUser with either a changeRoom or a
// plain disconnect, and those paths do the actual cleanup.
func (h *Hub) announceExit(client *Client, username string) {
	room, ok := h.registry.RoomOf(client)
	if !ok {
		return
	}
	h.broadcastToRoom(room, client, encodeUpdate(username+leftRoomSuffix))
}

// broadcastToRoom delivers payload to every member of room except exclude.
// Delivery is best-effort: members whose send buffer is full or whose
// connection is gone are dropped from the registry instead of stalling
// delivery to the rest.
func (h *Hub) broadcastToRoom(room string, exclude *Client, payload []byte) {
	if payload == nil {
		return
	}

	members := h.registry.MembersExcept(room, exclude)
	if len(members) == 0 {
		return
	}
	log.Printf("Broadcasting to %d member(s) of %q", len(members), room)

	var failed []*Client
	for _, member := range members {
		if !h.safeSend(member, payload) {
			failed = append(failed, member)
		}
	}

	for _, member := range failed {
		log.Printf("Client %s from %s removed: send buffer full or connection gone", member.id, member.addr)
		h.dropClient(member)
	}
}

func (h *Hub) safeSend(client *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	if !h.registry.Contains(client) || client.closed {
		return false
	}

	// The channel might be closed by a concurrent drop, hence the recover.
	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// shutdownClients drops every registered connection. Closing the send
// channels is what lets the writePumps exit; the readPumps exit when the
// connections close underneath them.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	clients := h.registry.Clients()
	for _, client := range clients {
		h.dropClient(client)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()

	// Wait for Run() to complete
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
