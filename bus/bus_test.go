package bus

import (
	"sync"
	"testing"

	"github.com/redchat-cluster/wire"
)

type recorder struct {
	mu   sync.Mutex
	envs []*wire.Envelope
}

func (r *recorder) handle(env *wire.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
}

func (r *recorder) received() []*wire.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*wire.Envelope(nil), r.envs...)
}

func TestMemBusStampsOrigin(t *testing.T) {
	channel := NewMemChannel()
	b := NewMemBus(channel, 42)

	env, err := wire.NewEnvelope(wire.EventConnect, &wire.PresenceMsg{UserID: 1, Username: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Publish(env); err != nil {
		t.Fatal(err)
	}
	if env.ServerID != 42 {
		t.Errorf("Publish() stamped ServerID = %v, want 42", env.ServerID)
	}
}

func TestMemBusDeliversToEveryInstance(t *testing.T) {
	channel := NewMemChannel()
	busA := NewMemBus(channel, 1)
	busB := NewMemBus(channel, 2)

	recA := &recorder{}
	recB := &recorder{}
	if err := busA.Subscribe(recA.handle); err != nil {
		t.Fatal(err)
	}
	if err := busB.Subscribe(recB.handle); err != nil {
		t.Fatal(err)
	}

	env, _ := wire.NewEnvelope(wire.EventMessage, &wire.ChatMsg{From: "1", Date: 1, Message: "x", RoomID: "0"})
	if err := busA.Publish(env); err != nil {
		t.Fatal(err)
	}

	// pub/sub fans out to every subscriber, the publisher included;
	// discarding the origin's own copy is the handler's job, not the bus's
	for name, rec := range map[string]*recorder{"origin": recA, "other": recB} {
		envs := rec.received()
		if len(envs) != 1 {
			t.Fatalf("%s received %d envelopes, want 1", name, len(envs))
		}
		if envs[0].ServerID != 1 {
			t.Errorf("%s saw origin %d, want 1", name, envs[0].ServerID)
		}
	}
}
