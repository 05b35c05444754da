package database

// User 是一个具体的用户身份对象. Online is derived from the presence set,
// never stored on the hash itself.
type User struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// Room is either a NamedRoom or a PrivateRoom. The two variants resolve
// their display names by different paths, so they are kept as distinct
// types rather than one struct with optional fields.
type Room interface {
	// RoomID the store-level room identifier
	RoomID() string
	// Participants display names, in room-defined order
	Participants() []string

	room()
}

// NamedRoom has an explicit display name set once at creation and any
// number of members.
type NamedRoom struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomID RoomID
func (r *NamedRoom) RoomID() string { return r.ID }

// Participants returns the single display name.
func (r *NamedRoom) Participants() []string { return []string{r.Name} }

func (r *NamedRoom) room() {}

// PrivateRoom is a two-party room. Its id is the two user ids sorted
// ascending and joined with the separator; its name is derived at read
// time from the participants' usernames.
type PrivateRoom struct {
	ID    string    `json:"id"`
	UserA uint64    `json:"userA"` // smaller id
	UserB uint64    `json:"userB"`
	Names [2]string `json:"names"`
}

// RoomID RoomID
func (r *PrivateRoom) RoomID() string { return r.ID }

// Participants returns both usernames.
func (r *PrivateRoom) Participants() []string { return r.Names[:] }

func (r *PrivateRoom) room() {}
