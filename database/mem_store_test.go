package database

import (
	"fmt"
	"testing"
)

func TestMemIdentityStore_Register(t *testing.T) {
	rooms := NewMemRoomStore()
	identity := NewMemIdentityStore(rooms)

	id, err := identity.Register("alice", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Errorf("Register() = %v, want 1", id)
	}

	if _, err := identity.Register("alice", "other"); err != ErrDuplicateUsername {
		t.Errorf("Register() error = %v, want ErrDuplicateUsername", err)
	}

	// registration puts the user into the default named room
	member, err := rooms.IsMember(id, DefaultRoomID)
	if err != nil {
		t.Fatal(err)
	}
	if !member {
		t.Error("registered user is not in the default room")
	}

	got, err := identity.Resolve("alice")
	if err != nil {
		t.Fatal(err)
	}
	if got != id {
		t.Errorf("Resolve() = %v, want %v", got, id)
	}
	if _, err := identity.Resolve("nobody"); err != ErrNotFound {
		t.Errorf("Resolve() error = %v, want ErrNotFound", err)
	}

	user, err := identity.GetProfile(id)
	if err != nil {
		t.Fatal(err)
	}
	if user.Username != "alice" {
		t.Errorf("GetProfile().Username = %v, want alice", user.Username)
	}
	if _, err := identity.GetProfile(999); err != ErrNotFound {
		t.Errorf("GetProfile() error = %v, want ErrNotFound", err)
	}
}

func TestMemPresenceCache_Idempotence(t *testing.T) {
	presence := NewMemPresenceCache()

	presence.MarkOnline(7)
	presence.MarkOnline(7)

	online, err := presence.ListOnline()
	if err != nil {
		t.Fatal(err)
	}
	if len(online) != 1 || online[0] != 7 {
		t.Errorf("ListOnline() = %v, want [7]", online)
	}

	// removing an absent member is a no-op, not an error
	if err := presence.MarkOffline(42); err != nil {
		t.Errorf("MarkOffline() error = %v", err)
	}

	presence.MarkOffline(7)
	online, _ = presence.ListOnline()
	if len(online) != 0 {
		t.Errorf("ListOnline() = %v, want empty", online)
	}
}

func TestMemRoomStore_Membership(t *testing.T) {
	rooms := NewMemRoomStore()

	for i := 0; i < 3; i++ {
		// repeated adds commute, membership is a set
		if err := rooms.AddToRoom(1, "1:2"); err != nil {
			t.Fatal(err)
		}
	}
	got, err := rooms.Rooms(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "1:2" {
		t.Errorf("Rooms() = %v, want [1:2]", got)
	}

	member, _ := rooms.IsMember(1, "1:2")
	if !member {
		t.Error("IsMember() = false, want true")
	}
	member, _ = rooms.IsMember(2, "1:2")
	if member {
		t.Error("IsMember() = true, want false")
	}
}

func TestMemRoomStore_Names(t *testing.T) {
	rooms := NewMemRoomStore()
	if _, err := rooms.RoomName("0"); err != ErrNotFound {
		t.Errorf("RoomName() error = %v, want ErrNotFound", err)
	}
	if err := rooms.SetRoomName("0", "General"); err != nil {
		t.Fatal(err)
	}
	name, err := rooms.RoomName("0")
	if err != nil {
		t.Fatal(err)
	}
	if name != "General" {
		t.Errorf("RoomName() = %v, want General", name)
	}
}

func TestMemRoomStore_ManyUsers(t *testing.T) {
	rooms := NewMemRoomStore()
	for i := 0; i < 100; i++ {
		rooms.AddToRoom(uint64(i), DefaultRoomID)
		rooms.AddToRoom(uint64(i), fmt.Sprintf("%d:%d", i, i+1))
	}
	for i := 0; i < 100; i++ {
		got, err := rooms.Rooms(uint64(i))
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Errorf("Rooms(%d) = %v, want 2 entries", i, got)
		}
	}
}
