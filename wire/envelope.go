package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

const (
	// EventConnect a client attached to some server instance
	EventConnect = "connect"
	// EventDisconnect a client detached from some server instance
	EventDisconnect = "disconnect"
	// EventMessage a chat message was appended to a room log
	EventMessage = "message"
)

// BroadcastChannel is the single shared pub/sub channel. Every server
// instance publishes to it and holds exactly one subscription on it.
const BroadcastChannel = "MESSAGES"

var (
	// ErrUnknownEvent ErrUnknownEvent
	ErrUnknownEvent = errors.New("unknown event type")
	// ErrWrongPayload is returned when an envelope payload is decoded as
	// a type that does not match its event type.
	ErrWrongPayload = errors.New("payload does not match event type")
)

// Protocol defined message decode and encode function
type Protocol interface {
	Decode(io.Reader) error
	Encode(io.Writer) error
}

// Envelope wraps one event crossing the broadcast channel. ServerID is
// the origin instance; receivers compare it with their own id to discard
// envelopes they published themselves.
type Envelope struct {
	ServerID uint64          `json:"serverId"`
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data"`
}

// NewEnvelope builds an envelope for event carrying payload. ServerID is
// left zero; the bus stamps it at publish time.
func NewEnvelope(event string, payload interface{}) (*Envelope, error) {
	switch event {
	case EventConnect, EventDisconnect, EventMessage:
	default:
		return nil, ErrUnknownEvent
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: event, Data: data}, nil
}

// Decode Decode reader to Envelope
func (e *Envelope) Decode(r io.Reader) error {
	if err := json.NewDecoder(r).Decode(e); err != nil {
		return err
	}
	switch e.Type {
	case EventConnect, EventDisconnect, EventMessage:
		return nil
	}
	return fmt.Errorf("%v: %q", ErrUnknownEvent, e.Type)
}

// Encode Encode Envelope to writer
func (e *Envelope) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(e)
}

// ParseEnvelope decodes one envelope from raw channel bytes.
func ParseEnvelope(raw []byte) (*Envelope, error) {
	env := &Envelope{}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, err
	}
	switch env.Type {
	case EventConnect, EventDisconnect, EventMessage:
		return env, nil
	}
	return nil, fmt.Errorf("%v: %q", ErrUnknownEvent, env.Type)
}

// Marshal returns the wire bytes of the envelope.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Chat decodes the payload of a message envelope.
func (e *Envelope) Chat() (*ChatMsg, error) {
	if e.Type != EventMessage {
		return nil, ErrWrongPayload
	}
	msg := &ChatMsg{}
	if err := json.Unmarshal(e.Data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Presence decodes the payload of a connect or disconnect envelope.
func (e *Envelope) Presence() (*PresenceMsg, error) {
	if e.Type != EventConnect && e.Type != EventDisconnect {
		return nil, ErrWrongPayload
	}
	msg := &PresenceMsg{}
	if err := json.Unmarshal(e.Data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ChatMsg is a chat message. The same JSON shape is used on the broadcast
// channel and at rest in the room log; treat it as a schema, not an
// accident of one serializer.
type ChatMsg struct {
	From    string `json:"from"` // sender user id, decimal string
	Date    int64  `json:"date"` // unix seconds, the room-log sort key
	Message string `json:"message"`
	RoomID  string `json:"roomId"`
}

// FromID parses the sender user id.
func (m *ChatMsg) FromID() (uint64, error) {
	return strconv.ParseUint(m.From, 10, 64)
}

// PresenceMsg is the payload of connect and disconnect envelopes.
type PresenceMsg struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
}
