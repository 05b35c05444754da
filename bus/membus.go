package bus

import (
	"sync"

	"github.com/redchat-cluster/wire"
)

// MemChannel is an in-process stand-in for the shared pub/sub channel,
// used in single mode and by tests. Several MemBus instances attached to
// one MemChannel behave like several servers on one store.
type MemChannel struct {
	mu       sync.Mutex
	handlers []Handler
}

// NewMemChannel NewMemChannel
func NewMemChannel() *MemChannel {
	return &MemChannel{}
}

func (c *MemChannel) attach(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// deliver fans one envelope out to every attached handler, the
// publisher's own included, matching pub/sub semantics.
func (c *MemChannel) deliver(env *wire.Envelope) {
	c.mu.Lock()
	handlers := make([]Handler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()
	for _, h := range handlers {
		h(env)
	}
}

// MemBus mem Bus
type MemBus struct {
	channel  *MemChannel
	serverID uint64
}

// NewMemBus NewMemBus
func NewMemBus(channel *MemChannel, serverID uint64) *MemBus {
	return &MemBus{channel: channel, serverID: serverID}
}

// Publish Publish
func (b *MemBus) Publish(env *wire.Envelope) error {
	env.ServerID = b.serverID
	b.channel.deliver(env)
	return nil
}

// Subscribe Subscribe
func (b *MemBus) Subscribe(h Handler) error {
	if h != nil {
		b.channel.attach(h)
	}
	return nil
}

// Close Close
func (b *MemBus) Close() error {
	return nil
}
