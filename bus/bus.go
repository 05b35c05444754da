package bus

import (
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis"

	"github.com/redchat-cluster/database"
	"github.com/redchat-cluster/wire"
)

const resubscribeInterval = time.Second * 3

// Handler 消息处理. It is invoked for every envelope seen on the shared
// channel, the instance's own included; discarding self-published
// envelopes is the handler's responsibility, because the origin instance
// has already notified its local clients at publish time.
type Handler func(env *wire.Envelope)

// Bus fans typed events out to every server instance attached to the
// store. Delivery is at-least-once with per-publisher ordering only.
type Bus interface {
	// Publish stamps the envelope with this instance's id and sends it on
	// the shared channel.
	Publish(env *wire.Envelope) error
	// Subscribe registers the handler and starts the delivery loop. One
	// subscription per instance lifetime.
	Subscribe(h Handler) error
	// Close stops the delivery loop.
	Close() error
}

// RedisBus is the bus over the store's pub/sub channel.
type RedisBus struct {
	client   *redis.Client
	serverID uint64

	mu     sync.Mutex
	pubsub *redis.PubSub
	quit   chan struct{}
	once   sync.Once
}

// NewRedisBus NewRedisBus
func NewRedisBus(client *redis.Client, serverID uint64) *RedisBus {
	return &RedisBus{
		client:   client,
		serverID: serverID,
		quit:     make(chan struct{}),
	}
}

// Publish Publish
func (b *RedisBus) Publish(env *wire.Envelope) error {
	env.ServerID = b.serverID
	raw, err := env.Marshal()
	if err != nil {
		return err
	}
	return b.client.Publish(wire.BroadcastChannel, string(raw)).Err()
}

// Subscribe Subscribe
func (b *RedisBus) Subscribe(h Handler) error {
	if h == nil {
		return nil
	}
	pubsub := b.client.Subscribe(wire.BroadcastChannel)
	if _, err := pubsub.Receive(); err != nil {
		pubsub.Close()
		log.Println("bus: subscribe:", err)
		return database.ErrStoreUnavailable
	}
	b.mu.Lock()
	b.pubsub = pubsub
	b.mu.Unlock()

	go b.receiveLoop(h)
	return nil
}

// receiveLoop delivers envelopes until Close. A lost connection is
// retried with reconnect-and-resubscribe; envelopes published during the
// gap are gone, there is no replay.
func (b *RedisBus) receiveLoop(h Handler) {
	for {
		b.mu.Lock()
		pubsub := b.pubsub
		b.mu.Unlock()

		msg, err := pubsub.ReceiveMessage()
		if err != nil {
			select {
			case <-b.quit:
				return
			default:
			}
			log.Println("bus: subscription lost, resubscribing:", err)
			pubsub.Close()
			time.Sleep(resubscribeInterval)
			b.mu.Lock()
			b.pubsub = b.client.Subscribe(wire.BroadcastChannel)
			b.mu.Unlock()
			continue
		}
		env, err := wire.ParseEnvelope([]byte(msg.Payload))
		if err != nil {
			log.Println("bus: drop malformed envelope:", err)
			continue
		}
		h(env)
	}
}

// Close Close
func (b *RedisBus) Close() error {
	b.once.Do(func() {
		close(b.quit)
		b.mu.Lock()
		if b.pubsub != nil {
			b.pubsub.Close()
		}
		b.mu.Unlock()
	})
	return nil
}
