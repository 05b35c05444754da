package database

import "github.com/redchat-cluster/wire"

// IdentityStore 定义了用户目录操作接口: username to id mapping and the
// user hash records behind it.
type IdentityStore interface {
	// Register allocates the next user id for username and adds the user
	// to the default named room. ErrDuplicateUsername if taken.
	Register(username, password string) (uint64, error)
	// Resolve maps a username to its user id. ErrNotFound if unmapped.
	Resolve(username string) (uint64, error)
	// GetProfile reads the user record. ErrNotFound if absent.
	GetProfile(id uint64) (*User, error)
}

// RoomStore 定义了房间成员关系操作接口, materialized per-user.
type RoomStore interface {
	// AddToRoom idempotent set-add of roomID to the user's membership set.
	AddToRoom(userID uint64, roomID string) error
	// Rooms returns the user's membership set. Iteration order is the
	// store's; callers must not depend on it.
	Rooms(userID uint64) ([]string, error)
	// IsMember reports whether roomID is in the user's membership set.
	IsMember(userID uint64, roomID string) (bool, error)
	// SetRoomName records a named room's display name.
	SetRoomName(roomID, name string) error
	// RoomName reads a named room's display name. ErrNotFound when the
	// room has no name key, which is how private rooms look.
	RoomName(roomID string) (string, error)
}

// MessageLog 定义了消息日志操作接口: the append-only, time-ordered log
// per room.
type MessageLog interface {
	// Append writes msg into the room log scored by msg.Date. No dedup,
	// no monotonicity check.
	Append(roomID string, msg *wire.ChatMsg) error
	// Recent returns up to limit messages starting at offset, newest
	// first. An unknown room yields an empty slice, not an error.
	Recent(roomID string, offset, limit int64) ([]*wire.ChatMsg, error)
	// HasMessages reports whether the room log holds at least one entry.
	HasMessages(roomID string) (bool, error)
}

// PresenceCache 定义了在线状态操作接口.
type PresenceCache interface {
	// MarkOnline idempotent set-add.
	MarkOnline(userID uint64) error
	// MarkOffline idempotent set-remove; absent member is a no-op.
	MarkOffline(userID uint64) error
	// ListOnline returns the ids currently marked online.
	ListOnline() ([]uint64, error)
}
