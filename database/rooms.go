package database

import (
	"fmt"
	"strconv"
	"strings"
)

// PrivateRoomSep joins the two sorted user ids of a private room id.
const PrivateRoomSep = ":"

// DefaultRoomID is the named room every registered user is added to.
const DefaultRoomID = "0"

// PrivateRoomID derives the canonical room id for a two-party room: the
// ids sorted ascending, joined with the separator. A room between A and B
// resolves to the same id regardless of who initiates it.
// ErrInvalidRoom when a == b.
func PrivateRoomID(a, b uint64) (string, error) {
	if a == b {
		return "", ErrInvalidRoom
	}
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d%s%d", a, PrivateRoomSep, b), nil
}

// SplitPrivateRoomID decodes a private room id back into its two user
// ids. ErrAccessDenied when the id is not exactly two integer components.
func SplitPrivateRoomID(roomID string) (uint64, uint64, error) {
	parts := strings.Split(roomID, PrivateRoomSep)
	if len(parts) != 2 {
		return 0, 0, ErrAccessDenied
	}
	a, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, ErrAccessDenied
	}
	b, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, 0, ErrAccessDenied
	}
	return a, b, nil
}

// IsPrivateRoomID reports whether roomID looks like a private-room
// encoding rather than a named-room token.
func IsPrivateRoomID(roomID string) bool {
	return strings.Contains(roomID, PrivateRoomSep)
}

// RoomResolver 房间解析. It composes the identity directory, the
// membership store and the message log to turn a user's membership set
// into displayable rooms.
type RoomResolver struct {
	identity IdentityStore
	rooms    RoomStore
	messages MessageLog
}

// NewRoomResolver NewRoomResolver
func NewRoomResolver(identity IdentityStore, rooms RoomStore, messages MessageLog) *RoomResolver {
	return &RoomResolver{identity: identity, rooms: rooms, messages: messages}
}

// EnsurePrivateRoom adds the derived room id to both users' membership
// sets. Idempotent, safe to call on every message send.
func (r *RoomResolver) EnsurePrivateRoom(userA, userB uint64) (string, error) {
	roomID, err := PrivateRoomID(userA, userB)
	if err != nil {
		return "", err
	}
	if err := r.rooms.AddToRoom(userA, roomID); err != nil {
		return "", err
	}
	if err := r.rooms.AddToRoom(userB, roomID); err != nil {
		return "", err
	}
	return roomID, nil
}

// ListMyRooms resolves every room id in the user's membership set. A room
// with a display name comes back as a NamedRoom. A nameless id is treated
// as a private-room encoding and resolved through the identity directory.
// Ids with neither a name key nor any stored messages are stale
// membership entries and are skipped, not errored.
func (r *RoomResolver) ListMyRooms(userID uint64) ([]Room, error) {
	roomIDs, err := r.rooms.Rooms(userID)
	if err != nil {
		return nil, err
	}
	rooms := make([]Room, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		name, err := r.rooms.RoomName(roomID)
		if err == nil {
			rooms = append(rooms, &NamedRoom{ID: roomID, Name: name})
			continue
		}
		if err != ErrNotFound {
			return nil, err
		}
		exists, err := r.messages.HasMessages(roomID)
		if err != nil {
			return nil, err
		}
		if !exists {
			// no name key and no log: the backing data is gone
			continue
		}
		room, err := r.resolvePrivate(roomID)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (r *RoomResolver) resolvePrivate(roomID string) (*PrivateRoom, error) {
	a, b, err := SplitPrivateRoomID(roomID)
	if err != nil {
		return nil, err
	}
	userA, err := r.identity.GetProfile(a)
	if err != nil {
		return nil, err
	}
	userB, err := r.identity.GetProfile(b)
	if err != nil {
		return nil, err
	}
	return &PrivateRoom{
		ID:    roomID,
		UserA: a,
		UserB: b,
		Names: [2]string{userA.Username, userB.Username},
	}, nil
}
