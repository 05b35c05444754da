package hub

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/redchat-cluster/bus"
	"github.com/redchat-cluster/config"
	"github.com/redchat-cluster/database"
	"github.com/redchat-cluster/wire"
)

// relayQueueLen bounds the queue between the bus delivery loop and local
// dispatch, so a burst of cluster traffic cannot block the subscription.
const relayQueueLen = 256

type addPeer struct {
	peer localClient
	done chan struct{}
}

type delPeer struct {
	peer localClient
	done chan struct{}
}

// localClient is a locally attached client the hub can dispatch to.
type localClient interface {
	User() *database.User
	PushEnvelope(env *wire.Envelope)
}

// Hub 是一个服务中心. One hub per server instance: it owns the locally
// attached client peers, drives presence and the message log on their
// behalf, and relays broadcast envelopes from other instances to them.
type Hub struct {
	upgrader *websocket.Upgrader
	config   *config.Config
	// ServerID identifies this instance on the broadcast channel and is
	// what the envelope handler compares against for self-suppression.
	ServerID uint64

	identity database.IdentityStore
	rooms    database.RoomStore
	resolver *database.RoomResolver
	messages database.MessageLog
	presence database.PresenceCache
	bus      bus.Bus

	// clientPeers 缓存客户端节点数据, owned by the event loop goroutine
	clientPeers map[uint64]localClient

	register   chan *addPeer
	unregister chan *delPeer
	relay      chan *wire.Envelope
	quit       chan struct{}
}

// NewHub 创建一个 Hub 对象，并初始化
func NewHub(cfg *config.Config) (*Hub, error) {
	var upgrader = &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if cfg.Server.Origin == "*" {
				return true
			}
			rOrigin := r.Header.Get("Origin")
			if strings.Contains(cfg.Server.Origin, rOrigin) {
				return true
			}
			log.Println("refuse", rOrigin)
			return false
		},
	}

	hub := &Hub{
		upgrader:    upgrader,
		config:      cfg,
		ServerID:    cfg.ServerID,
		identity:    cfg.Store.Identity,
		rooms:       cfg.Store.Rooms,
		resolver:    database.NewRoomResolver(cfg.Store.Identity, cfg.Store.Rooms, cfg.Store.Messages),
		messages:    cfg.Store.Messages,
		presence:    cfg.Store.Presence,
		bus:         cfg.Store.Bus,
		clientPeers: make(map[uint64]localClient, 1000),
		register:    make(chan *addPeer, 1),
		unregister:  make(chan *delPeer, 1),
		relay:       make(chan *wire.Envelope, relayQueueLen),
		quit:        make(chan struct{}),
	}

	// the default named room exists before the first message does
	if err := hub.ensureDefaultRoom(); err != nil {
		return nil, err
	}

	return hub, nil
}

// ensureDefaultRoom writes the default room's display name once.
func (h *Hub) ensureDefaultRoom() error {
	_, err := h.rooms.RoomName(database.DefaultRoomID)
	if err == database.ErrNotFound {
		return h.rooms.SetRoomName(database.DefaultRoomID, h.config.Server.DefaultRoomName)
	}
	return err
}

// Run starts the event loop, subscribes to the broadcast channel and
// serves the websocket/http endpoints. Blocks until Close.
func (h *Hub) Run() error {
	if err := h.start(); err != nil {
		return err
	}

	go httplisten(h, &h.config.Server)

	<-h.quit
	return nil
}

// start runs the event loop and attaches the instance's single bus
// subscription.
func (h *Hub) start() error {
	go h.eventHandler()
	return h.bus.Subscribe(h.onEnvelope)
}

// onEnvelope runs on the bus delivery loop and must not block it.
func (h *Hub) onEnvelope(env *wire.Envelope) {
	if env.ServerID == h.ServerID {
		// our own envelope coming back around; local clients were
		// already notified at publish time
		return
	}
	select {
	case h.relay <- env:
	default:
		log.Println("hub: relay queue full, envelope dropped")
	}
}

// eventHandler owns clientPeers. Registration, unregistration and local
// dispatch all run here, so the map needs no lock.
func (h *Hub) eventHandler() {
	log.Println("start eventHandler")
	for {
		select {
		case p := <-h.register:
			h.clientPeers[p.peer.User().ID] = p.peer
			log.Printf("client %v connected", p.peer.User().Username)
			if p.done != nil {
				p.done <- struct{}{}
			}
		case p := <-h.unregister:
			userID := p.peer.User().ID
			if current, ok := h.clientPeers[userID]; ok && current == p.peer {
				delete(h.clientPeers, userID)
				log.Printf("client %v disconnected", p.peer.User().Username)
			}
			if p.done != nil {
				p.done <- struct{}{}
			}
		case env := <-h.relay:
			h.dispatch(env)
		case <-h.quit:
			return
		}
	}
}

// dispatch relays one envelope to the locally attached clients that
// should see it.
func (h *Hub) dispatch(env *wire.Envelope) {
	switch env.Type {
	case wire.EventConnect, wire.EventDisconnect:
		for _, peer := range h.clientPeers {
			peer.PushEnvelope(env)
		}
	case wire.EventMessage:
		chat, err := env.Chat()
		if err != nil {
			log.Println("hub: drop envelope:", err)
			return
		}
		for _, peer := range h.clientPeers {
			member, err := h.isRoomMember(peer.User().ID, chat.RoomID)
			if err != nil {
				log.Println("hub: membership check:", err)
				continue
			}
			if member {
				peer.PushEnvelope(env)
			}
		}
	}
}

func (h *Hub) isRoomMember(userID uint64, roomID string) (bool, error) {
	if database.IsPrivateRoomID(roomID) {
		a, b, err := database.SplitPrivateRoomID(roomID)
		if err != nil {
			return false, nil
		}
		return userID == a || userID == b, nil
	}
	return h.rooms.IsMember(userID, roomID)
}

// ConnectClient attaches a peer, marks its user online and broadcasts
// the connect event.
func (h *Hub) ConnectClient(peer localClient) error {
	done := make(chan struct{})
	h.register <- &addPeer{peer: peer, done: done}
	<-done

	if err := h.presence.MarkOnline(peer.User().ID); err != nil {
		return err
	}
	return h.announce(wire.EventConnect, peer.User())
}

// DisconnectClient detaches a peer, marks its user offline and
// broadcasts the disconnect event.
func (h *Hub) DisconnectClient(peer localClient) error {
	done := make(chan struct{})
	h.unregister <- &delPeer{peer: peer, done: done}
	<-done

	if err := h.presence.MarkOffline(peer.User().ID); err != nil {
		return err
	}
	return h.announce(wire.EventDisconnect, peer.User())
}

func (h *Hub) announce(event string, user *database.User) error {
	env, err := wire.NewEnvelope(event, &wire.PresenceMsg{UserID: user.ID, Username: user.Username})
	if err != nil {
		return err
	}
	if err := h.bus.Publish(env); err != nil {
		return err
	}
	// local clients are notified here, at publish time; the loopback
	// copy of this envelope is discarded by onEnvelope
	h.relay <- env
	return nil
}

// SendChat validates, stores and broadcasts one chat message from a
// locally attached user. The store write happens before the publish:
// a crash in between leaves a stored message without a broadcast, never
// a broadcast without a stored message.
func (h *Hub) SendChat(from *database.User, roomID, text string, date int64) (*wire.ChatMsg, error) {
	if date == 0 {
		date = time.Now().Unix()
	}
	if database.IsPrivateRoomID(roomID) {
		a, b, err := database.SplitPrivateRoomID(roomID)
		if err != nil {
			return nil, err
		}
		if from.ID != a && from.ID != b {
			return nil, database.ErrAccessDenied
		}
		if _, err := h.resolver.EnsurePrivateRoom(a, b); err != nil {
			return nil, err
		}
	} else {
		member, err := h.rooms.IsMember(from.ID, roomID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, database.ErrAccessDenied
		}
	}

	msg := &wire.ChatMsg{
		From:    strconv.FormatUint(from.ID, 10),
		Date:    date,
		Message: text,
		RoomID:  roomID,
	}
	if err := h.messages.Append(roomID, msg); err != nil {
		return nil, err
	}
	env, err := wire.NewEnvelope(wire.EventMessage, msg)
	if err != nil {
		return nil, err
	}
	if err := h.bus.Publish(env); err != nil {
		return nil, err
	}
	h.relay <- env
	return msg, nil
}

// Resolver the hub's room resolver.
func (h *Hub) Resolver() *database.RoomResolver {
	return h.resolver
}

// Close close hub
func (h *Hub) Close() {
	h.bus.Close()
	close(h.quit)
}
