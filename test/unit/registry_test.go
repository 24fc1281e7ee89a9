// Package unit contains unit tests for individual components of the salon relay.
//
// These tests focus on testing specific functions and methods in isolation,
// using mocks and stubs where necessary to avoid dependencies on external systems.
// Unit tests ensure that each component behaves correctly under various conditions.
package unit

import (
	"testing"

	"github.com/salonchat/relay/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *server.Client {
	return server.NewClient(nil, nil, "127.0.0.1:0")
}

func TestRegistryAddAndRemove(t *testing.T) {
	registry := server.NewRegistry()
	client := newTestClient()

	registry.Add(client)
	assert.True(t, registry.Contains(client))
	assert.Equal(t, 1, registry.ClientCount())

	_, ok := registry.RoomOf(client)
	assert.False(t, ok, "freshly added connection should have no room")

	room, removed := registry.Remove(client)
	assert.True(t, removed)
	assert.Empty(t, room)
	assert.False(t, registry.Contains(client))
	assert.Equal(t, 0, registry.ClientCount())
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	registry := server.NewRegistry()
	client := newTestClient()

	registry.Add(client)
	_, ok := registry.Join(client, "room 1")
	require.True(t, ok)

	room, removed := registry.Remove(client)
	assert.True(t, removed)
	assert.Equal(t, "room 1", room)

	room, removed = registry.Remove(client)
	assert.False(t, removed, "second remove must be a no-op")
	assert.Empty(t, room)
	assert.Empty(t, registry.MembersExcept("room 1", nil))
}

func TestRegistryJoinRequiresRegistration(t *testing.T) {
	registry := server.NewRegistry()
	client := newTestClient()

	previous, ok := registry.Join(client, "room 1")
	assert.False(t, ok)
	assert.Empty(t, previous)
	assert.Empty(t, registry.MembersExcept("room 1", nil))
	assert.Equal(t, 0, registry.RoomCount())
}

func TestRegistryJoinCreatesRoomImplicitly(t *testing.T) {
	registry := server.NewRegistry()
	client := newTestClient()
	registry.Add(client)

	previous, ok := registry.Join(client, "room 7")
	require.True(t, ok)
	assert.Empty(t, previous)

	room, ok := registry.RoomOf(client)
	require.True(t, ok)
	assert.Equal(t, "room 7", room)
	assert.Len(t, registry.MembersExcept("room 7", nil), 1)
	assert.Equal(t, 1, registry.RoomCount())
}

func TestRegistryJoinMovesBetweenRooms(t *testing.T) {
	registry := server.NewRegistry()
	client := newTestClient()
	registry.Add(client)

	_, ok := registry.Join(client, "room 1")
	require.True(t, ok)

	previous, ok := registry.Join(client, "room 2")
	require.True(t, ok)
	assert.Equal(t, "room 1", previous)

	room, ok := registry.RoomOf(client)
	require.True(t, ok)
	assert.Equal(t, "room 2", room)

	assert.Empty(t, registry.MembersExcept("room 1", nil))
	assert.Len(t, registry.MembersExcept("room 2", nil), 1)
	assert.Equal(t, 1, registry.RoomCount(), "empty room should be released")
}

func TestRegistryRejoinSameRoom(t *testing.T) {
	registry := server.NewRegistry()
	client := newTestClient()
	registry.Add(client)

	_, ok := registry.Join(client, "room 1")
	require.True(t, ok)

	previous, ok := registry.Join(client, "room 1")
	require.True(t, ok)
	assert.Equal(t, "room 1", previous)
	assert.Len(t, registry.MembersExcept("room 1", nil), 1, "rejoining must not duplicate membership")
}

func TestRegistryLeave(t *testing.T) {
	registry := server.NewRegistry()
	client := newTestClient()
	registry.Add(client)

	_, ok := registry.Join(client, "room 3")
	require.True(t, ok)

	room, left := registry.Leave(client)
	assert.True(t, left)
	assert.Equal(t, "room 3", room)
	assert.True(t, registry.Contains(client), "leave keeps the connection registered")

	_, left = registry.Leave(client)
	assert.False(t, left, "leaving with no room is a no-op")
	assert.Equal(t, 0, registry.RoomCount())
}

func TestRegistryMembersExceptExcludesConnection(t *testing.T) {
	registry := server.NewRegistry()
	sender := newTestClient()
	other := newTestClient()
	registry.Add(sender)
	registry.Add(other)

	_, ok := registry.Join(sender, "room 1")
	require.True(t, ok)
	_, ok = registry.Join(other, "room 1")
	require.True(t, ok)

	members := registry.MembersExcept("room 1", sender)
	require.Len(t, members, 1)
	assert.Same(t, other, members[0])

	assert.Nil(t, registry.MembersExcept("no such room", nil))
}

func TestRegistryViewsAgree(t *testing.T) {
	registry := server.NewRegistry()
	rooms := []string{"room 1", "room 2", "room 1", "room 3"}

	clients := make([]*server.Client, len(rooms))
	for i, room := range rooms {
		clients[i] = newTestClient()
		registry.Add(clients[i])
		_, ok := registry.Join(clients[i], room)
		require.True(t, ok)
	}

	// The reverse index and the forward index must tell the same story for
	// every connection.
	for i, client := range clients {
		room, ok := registry.RoomOf(client)
		require.True(t, ok)
		assert.Equal(t, rooms[i], room)

		found := false
		for _, member := range registry.MembersExcept(room, nil) {
			if member == client {
				found = true
			}
		}
		assert.True(t, found, "client %d missing from its room's member set", i)
	}

	assert.Equal(t, 3, registry.RoomCount())
}
