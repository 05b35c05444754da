package database

import "errors"

var (
	// ErrDuplicateUsername the username already maps to a user id
	ErrDuplicateUsername = errors.New("username already registered")
	// ErrNotFound unknown user or username
	ErrNotFound = errors.New("not found")
	// ErrInvalidRoom self-room request or malformed private room id
	ErrInvalidRoom = errors.New("invalid room")
	// ErrAccessDenied room id does not decode to a private-room pair
	ErrAccessDenied = errors.New("access denied")
	// ErrStoreUnavailable the underlying store connection is lost
	ErrStoreUnavailable = errors.New("store unavailable")
)
