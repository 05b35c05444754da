package database

import (
	"sync"

	mapset "github.com/deckarep/golang-set"

	"github.com/redchat-cluster/wire"
)

// The in-memory implementations back single mode, where one process owns
// all state and no external store is required. They are also the store
// doubles used by tests. Semantics match the redis implementations.

// MemIdentityStore mem IdentityStore
type MemIdentityStore struct {
	mu     sync.Mutex
	nextID uint64
	byName map[string]uint64
	users  map[uint64]*User
	rooms  *MemRoomStore
}

// NewMemIdentityStore NewMemIdentityStore. rooms receives the default
// room membership written on registration.
func NewMemIdentityStore(rooms *MemRoomStore) *MemIdentityStore {
	return &MemIdentityStore{
		byName: make(map[string]uint64),
		users:  make(map[uint64]*User),
		rooms:  rooms,
	}
}

// Register Register
func (s *MemIdentityStore) Register(username, password string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[username]; ok {
		return 0, ErrDuplicateUsername
	}
	s.nextID++
	id := s.nextID
	s.byName[username] = id
	s.users[id] = &User{ID: id, Username: username}
	if s.rooms != nil {
		s.rooms.AddToRoom(id, DefaultRoomID)
	}
	return id, nil
}

// Resolve Resolve
func (s *MemIdentityStore) Resolve(username string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byName[username]
	if !ok {
		return 0, ErrNotFound
	}
	return id, nil
}

// GetProfile GetProfile
func (s *MemIdentityStore) GetProfile(id uint64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := *user
	return &u, nil
}

// MemRoomStore mem RoomStore
type MemRoomStore struct {
	mu     sync.Mutex
	byUser map[uint64]mapset.Set
	names  map[string]string
}

// NewMemRoomStore NewMemRoomStore
func NewMemRoomStore() *MemRoomStore {
	return &MemRoomStore{
		byUser: make(map[uint64]mapset.Set),
		names:  make(map[string]string),
	}
}

// AddToRoom AddToRoom
func (s *MemRoomStore) AddToRoom(userID uint64, roomID string) error {
	s.mu.Lock()
	set, ok := s.byUser[userID]
	if !ok {
		set = mapset.NewSet()
		s.byUser[userID] = set
	}
	s.mu.Unlock()
	set.Add(roomID)
	return nil
}

// Rooms Rooms
func (s *MemRoomStore) Rooms(userID uint64) ([]string, error) {
	s.mu.Lock()
	set, ok := s.byUser[userID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	items := set.ToSlice()
	roomIDs := make([]string, 0, len(items))
	for _, item := range items {
		roomIDs = append(roomIDs, item.(string))
	}
	return roomIDs, nil
}

// IsMember IsMember
func (s *MemRoomStore) IsMember(userID uint64, roomID string) (bool, error) {
	s.mu.Lock()
	set, ok := s.byUser[userID]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return set.Contains(roomID), nil
}

// SetRoomName SetRoomName
func (s *MemRoomStore) SetRoomName(roomID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[roomID] = name
	return nil
}

// RoomName RoomName
func (s *MemRoomStore) RoomName(roomID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.names[roomID]
	if !ok {
		return "", ErrNotFound
	}
	return name, nil
}

// MemMessageLog mem MessageLog
type MemMessageLog struct {
	mu    sync.Mutex
	rooms map[string][]*wire.ChatMsg // kept sorted ascending by Date
}

// NewMemMessageLog NewMemMessageLog
func NewMemMessageLog() *MemMessageLog {
	return &MemMessageLog{rooms: make(map[string][]*wire.ChatMsg)}
}

// Append Append. Out-of-order timestamps are inserted in sorted position,
// matching zset score ordering; equal scores keep insertion order.
func (l *MemMessageLog) Append(roomID string, msg *wire.ChatMsg) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	log := l.rooms[roomID]
	i := len(log)
	for i > 0 && log[i-1].Date > msg.Date {
		i--
	}
	log = append(log, nil)
	copy(log[i+1:], log[i:])
	m := *msg
	log[i] = &m
	l.rooms[roomID] = log
	return nil
}

// Recent Recent
func (l *MemMessageLog) Recent(roomID string, offset, limit int64) ([]*wire.ChatMsg, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	log := l.rooms[roomID]
	msgs := make([]*wire.ChatMsg, 0, limit)
	if limit <= 0 {
		return msgs, nil
	}
	for i := int64(len(log)) - 1 - offset; i >= 0 && int64(len(msgs)) < limit; i-- {
		m := *log[i]
		msgs = append(msgs, &m)
	}
	return msgs, nil
}

// HasMessages HasMessages
func (l *MemMessageLog) HasMessages(roomID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms[roomID]) > 0, nil
}

// MemPresenceCache mem PresenceCache
type MemPresenceCache struct {
	online mapset.Set
}

// NewMemPresenceCache NewMemPresenceCache
func NewMemPresenceCache() *MemPresenceCache {
	return &MemPresenceCache{online: mapset.NewSet()}
}

// MarkOnline MarkOnline
func (c *MemPresenceCache) MarkOnline(userID uint64) error {
	c.online.Add(userID)
	return nil
}

// MarkOffline MarkOffline
func (c *MemPresenceCache) MarkOffline(userID uint64) error {
	c.online.Remove(userID)
	return nil
}

// ListOnline ListOnline
func (c *MemPresenceCache) ListOnline() ([]uint64, error) {
	items := c.online.ToSlice()
	ids := make([]uint64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.(uint64))
	}
	return ids, nil
}
