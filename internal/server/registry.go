// Package server tracks which connection occupies which room via the
// Registry type. The forward index (room to member set) and the reverse index
// (connection to current room) are guarded by a single mutex so callers never
// observe them half-updated.
package server

import "sync"

type memberSet map[*Client]struct{}

// Registry owns room membership for all live connections. A connection
// belongs to at most one room at a time; rooms come into existence the first
// time someone joins them and are dropped again when the last member leaves.
type Registry struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]memberSet
	current map[*Client]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]memberSet),
		current: make(map[*Client]string),
	}
}

// Add registers a connection with no room assigned.
func (r *Registry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[c] = struct{}{}
}

// Remove unregisters a connection and evicts it from its room, if any.
// It reports the room the connection occupied and whether the connection was
// still registered; removing twice is a no-op the second time.
func (r *Registry) Remove(c *Client) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, registered := r.clients[c]; !registered {
		return "", false
	}
	delete(r.clients, c)
	room, _ := r.evictLocked(c)
	return room, true
}

// Join moves a registered connection into room, leaving its previous room
// first. Both indexes change under one lock hold, so a concurrent broadcast
// sees the connection in either the old room or the new one, never both or
// neither. The previous room name is returned so the caller can decide
// whether to notify it. Joining while unregistered is refused.
func (r *Registry) Join(c *Client, room string) (previous string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, registered := r.clients[c]; !registered {
		return "", false
	}

	previous, _ = r.evictLocked(c)

	members, exists := r.rooms[room]
	if !exists {
		members = make(memberSet)
		r.rooms[room] = members
	}
	members[c] = struct{}{}
	r.current[c] = room
	return previous, true
}

// Leave removes the connection from its current room. It reports the room it
// was removed from; a connection with no room is a no-op.
func (r *Registry) Leave(c *Client) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.evictLocked(c)
}

// RoomOf returns the room the connection currently occupies.
func (r *Registry) RoomOf(c *Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.current[c]
	return room, ok
}

// MembersExcept returns a snapshot of the room's members minus exclude.
// The slice is safe to iterate while other goroutines mutate membership.
func (r *Registry) MembersExcept(room string, exclude *Client) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return nil
	}
	snapshot := make([]*Client, 0, len(members))
	for member := range members {
		if member == exclude {
			continue
		}
		snapshot = append(snapshot, member)
	}
	return snapshot
}

// Clients returns a snapshot of every registered connection.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]*Client, 0, len(r.clients))
	for client := range r.clients {
		snapshot = append(snapshot, client)
	}
	return snapshot
}

// Contains reports whether the connection is still registered.
func (r *Registry) Contains(c *Client) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.clients[c]
	return ok
}

// ClientCount returns the number of registered connections.
func (r *Registry) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}

// RoomCount returns the number of rooms with at least one member.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms)
}

// evictLocked drops the connection from its current room and deletes the
// member set once empty. Callers must hold the write lock.
func (r *Registry) evictLocked(c *Client) (string, bool) {
	room, ok := r.current[c]
	if !ok {
		return "", false
	}
	delete(r.current, c)
	if members, exists := r.rooms[room]; exists {
		delete(members, c)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	return room, true
}
