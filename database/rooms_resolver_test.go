package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redchat-cluster/wire"
)

func newTestResolver() (*RoomResolver, *MemIdentityStore, *MemRoomStore, *MemMessageLog) {
	rooms := NewMemRoomStore()
	identity := NewMemIdentityStore(rooms)
	messages := NewMemMessageLog()
	return NewRoomResolver(identity, rooms, messages), identity, rooms, messages
}

func TestRoomResolver_PrivateRoomScenario(t *testing.T) {
	resolver, identity, rooms, messages := newTestResolver()
	rooms.SetRoomName(DefaultRoomID, "General")

	alice, err := identity.Register("alice", "pw")
	require.NoError(t, err)
	bob, err := identity.Register("bob", "pw")
	require.NoError(t, err)
	require.Equal(t, uint64(1), alice)
	require.Equal(t, uint64(2), bob)

	roomID, err := resolver.EnsurePrivateRoom(alice, bob)
	require.NoError(t, err)
	require.Equal(t, "1:2", roomID)

	msg := &wire.ChatMsg{From: "1", Date: 100, Message: "hi", RoomID: roomID}
	require.NoError(t, messages.Append(roomID, msg))

	list, err := resolver.ListMyRooms(alice)
	require.NoError(t, err)

	var private *PrivateRoom
	var named *NamedRoom
	for _, room := range list {
		switch r := room.(type) {
		case *PrivateRoom:
			private = r
		case *NamedRoom:
			named = r
		}
	}
	require.NotNil(t, private, "private room missing from ListMyRooms")
	assert.Equal(t, [2]string{"alice", "bob"}, private.Names)
	assert.Equal(t, "1:2", private.ID)
	require.NotNil(t, named, "default room missing from ListMyRooms")
	assert.Equal(t, "General", named.Name)

	recent, err := messages.Recent(roomID, 0, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, msg, recent[0])
}

func TestRoomResolver_EnsureIsIdempotent(t *testing.T) {
	resolver, identity, rooms, _ := newTestResolver()
	a, _ := identity.Register("a", "")
	b, _ := identity.Register("b", "")

	for i := 0; i < 5; i++ {
		_, err := resolver.EnsurePrivateRoom(a, b)
		require.NoError(t, err)
	}
	list, err := rooms.Rooms(a)
	require.NoError(t, err)
	// default room plus exactly one private room
	assert.Len(t, list, 2)
}

func TestRoomResolver_SelfRoom(t *testing.T) {
	resolver, identity, _, _ := newTestResolver()
	a, _ := identity.Register("a", "")

	_, err := resolver.EnsurePrivateRoom(a, a)
	assert.Equal(t, ErrInvalidRoom, err)
}

func TestRoomResolver_SkipsStaleEntries(t *testing.T) {
	resolver, identity, rooms, _ := newTestResolver()
	a, _ := identity.Register("a", "")

	// membership points at a room with neither a name key nor messages
	rooms.AddToRoom(a, "9:10")
	rooms.AddToRoom(a, "gone")

	list, err := resolver.ListMyRooms(a)
	require.NoError(t, err)
	// only the default room remains, and it has no name set either, so
	// nothing at all comes back
	assert.Empty(t, list)
}

func TestRoomResolver_MalformedIDWithMessages(t *testing.T) {
	resolver, identity, rooms, messages := newTestResolver()
	a, _ := identity.Register("a", "")

	rooms.AddToRoom(a, "1:2:3")
	messages.Append("1:2:3", &wire.ChatMsg{From: "1", Date: 1, Message: "x", RoomID: "1:2:3"})

	_, err := resolver.ListMyRooms(a)
	assert.Equal(t, ErrAccessDenied, err)
}
