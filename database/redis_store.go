package database

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis"

	"github.com/redchat-cluster/wire"
)

const (
	totalUsersRedis          = "total_users"
	usernameRedisPattern     = "username:%s"   // -> user:{id}
	userRedisPattern         = "user:%d"       // hash: username, password
	userRoomsRedisPattern    = "user:%d:rooms" // set of room ids
	roomNameRedisPattern     = "room:%s:name"  // named-room display name
	roomMessagesRedisPattern = "room:%s"       // zset, score = timestamp
	onlineUsersRedis         = "online_users"  // set of user ids
)

// RedisIdentityStore redis IdentityStore
type RedisIdentityStore struct {
	client *redis.Client
}

// NewRedisIdentityStore NewRedisIdentityStore
func NewRedisIdentityStore(client *redis.Client) *RedisIdentityStore {
	return &RedisIdentityStore{client: client}
}

// Register Register
func (s *RedisIdentityStore) Register(username, password string) (uint64, error) {
	ukey := fmt.Sprintf(usernameRedisPattern, username)
	exists, err := s.client.Exists(ukey).Result()
	if err != nil {
		return 0, err
	}
	if exists > 0 {
		return 0, ErrDuplicateUsername
	}
	id, err := s.client.Incr(totalUsersRedis).Result()
	if err != nil {
		return 0, err
	}
	userID := uint64(id)
	userKey := fmt.Sprintf(userRedisPattern, userID)
	// SETNX closes the race between the exists check and the write; the
	// loser burns one counter value, which is harmless.
	ok, err := s.client.SetNX(ukey, userKey, 0).Result()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrDuplicateUsername
	}
	_, err = s.client.HMSet(userKey, map[string]interface{}{
		"username": username,
		"password": password,
	}).Result()
	if err != nil {
		return 0, err
	}
	// every user lands in the default named room
	err = s.client.SAdd(fmt.Sprintf(userRoomsRedisPattern, userID), DefaultRoomID).Err()
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// Resolve Resolve
func (s *RedisIdentityStore) Resolve(username string) (uint64, error) {
	val, err := s.client.Get(fmt.Sprintf(usernameRedisPattern, username)).Result()
	if err == redis.Nil {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	// value is the user record key, "user:{id}"
	id, err := strconv.ParseUint(strings.TrimPrefix(val, "user:"), 10, 64)
	if err != nil {
		return 0, ErrNotFound
	}
	return id, nil
}

// GetProfile GetProfile
func (s *RedisIdentityStore) GetProfile(id uint64) (*User, error) {
	fields, err := s.client.HGetAll(fmt.Sprintf(userRedisPattern, id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return &User{ID: id, Username: fields["username"]}, nil
}

// RedisRoomStore redis RoomStore
type RedisRoomStore struct {
	client *redis.Client
}

// NewRedisRoomStore NewRedisRoomStore
func NewRedisRoomStore(client *redis.Client) *RedisRoomStore {
	return &RedisRoomStore{client: client}
}

// AddToRoom AddToRoom
func (s *RedisRoomStore) AddToRoom(userID uint64, roomID string) error {
	return s.client.SAdd(fmt.Sprintf(userRoomsRedisPattern, userID), roomID).Err()
}

// Rooms Rooms
func (s *RedisRoomStore) Rooms(userID uint64) ([]string, error) {
	return s.client.SMembers(fmt.Sprintf(userRoomsRedisPattern, userID)).Result()
}

// IsMember IsMember
func (s *RedisRoomStore) IsMember(userID uint64, roomID string) (bool, error) {
	return s.client.SIsMember(fmt.Sprintf(userRoomsRedisPattern, userID), roomID).Result()
}

// SetRoomName SetRoomName
func (s *RedisRoomStore) SetRoomName(roomID, name string) error {
	return s.client.Set(fmt.Sprintf(roomNameRedisPattern, roomID), name, 0).Err()
}

// RoomName RoomName
func (s *RedisRoomStore) RoomName(roomID string) (string, error) {
	name, err := s.client.Get(fmt.Sprintf(roomNameRedisPattern, roomID)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// RedisMessageLog redis MessageLog
type RedisMessageLog struct {
	client *redis.Client
}

// NewRedisMessageLog NewRedisMessageLog
func NewRedisMessageLog(client *redis.Client) *RedisMessageLog {
	return &RedisMessageLog{client: client}
}

// Append Append
func (l *RedisMessageLog) Append(roomID string, msg *wire.ChatMsg) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(roomMessagesRedisPattern, roomID)
	return l.client.ZAdd(key, redis.Z{Score: float64(msg.Date), Member: raw}).Err()
}

// Recent Recent
func (l *RedisMessageLog) Recent(roomID string, offset, limit int64) ([]*wire.ChatMsg, error) {
	if limit <= 0 {
		return []*wire.ChatMsg{}, nil
	}
	key := fmt.Sprintf(roomMessagesRedisPattern, roomID)
	raws, err := l.client.ZRevRange(key, offset, offset+limit-1).Result()
	if err != nil {
		return nil, err
	}
	msgs := make([]*wire.ChatMsg, 0, len(raws))
	for _, raw := range raws {
		msg := &wire.ChatMsg{}
		if err := json.Unmarshal([]byte(raw), msg); err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// HasMessages HasMessages
func (l *RedisMessageLog) HasMessages(roomID string) (bool, error) {
	n, err := l.client.ZCard(fmt.Sprintf(roomMessagesRedisPattern, roomID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RedisPresenceCache redis PresenceCache
type RedisPresenceCache struct {
	client *redis.Client
}

// NewRedisPresenceCache NewRedisPresenceCache
func NewRedisPresenceCache(client *redis.Client) *RedisPresenceCache {
	return &RedisPresenceCache{client: client}
}

// MarkOnline MarkOnline
func (c *RedisPresenceCache) MarkOnline(userID uint64) error {
	return c.client.SAdd(onlineUsersRedis, userID).Err()
}

// MarkOffline MarkOffline
func (c *RedisPresenceCache) MarkOffline(userID uint64) error {
	return c.client.SRem(onlineUsersRedis, userID).Err()
}

// ListOnline ListOnline
func (c *RedisPresenceCache) ListOnline() ([]uint64, error) {
	members, err := c.client.SMembers(onlineUsersRedis).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
