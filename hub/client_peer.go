package hub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/redchat-cluster/database"
	"github.com/redchat-cluster/peer"
	"github.com/redchat-cluster/wire"
)

// ClientPeer 代表一个客户端节点，消息收发的处理逻辑
type ClientPeer struct {
	*peer.Peer
	hub    *Hub
	entity *database.User
}

// User the authenticated user behind this connection.
func (p *ClientPeer) User() *database.User {
	return p.entity
}

// PushEnvelope queues one envelope frame for this client.
func (p *ClientPeer) PushEnvelope(env *wire.Envelope) {
	raw, err := env.Marshal()
	if err != nil {
		return
	}
	p.PushMessage(raw)
}

// OnMessage 接收消息. A client frame is a ChatMsg; the sender identity
// comes from the session, not from the frame.
func (p *ClientPeer) OnMessage(message []byte) error {
	msg := &wire.ChatMsg{}
	if err := json.Unmarshal(message, msg); err != nil {
		return err
	}
	_, err := p.hub.SendChat(p.entity, msg.RoomID, msg.Message, msg.Date)
	return err
}

// OnDisconnect 接连断开
func (p *ClientPeer) OnDisconnect() error {
	return p.hub.DisconnectClient(p)
}

func newClientPeer(h *Hub, conn *websocket.Conn, user *database.User) (*ClientPeer, error) {
	clientPeer := &ClientPeer{
		hub:    h,
		entity: user,
	}

	peer := peer.NewPeer(fmt.Sprintf("C%v", user.ID), &peer.Config{
		Listeners: &peer.MessageListeners{
			OnMessage:    clientPeer.OnMessage,
			OnDisconnect: clientPeer.OnDisconnect,
		},
		MaxMessageSize:  h.config.Peer.MaxMessageSize,
		WriteWait:       time.Duration(h.config.Peer.WriteWait) * time.Second,
		PongWait:        time.Duration(h.config.Peer.PongWait) * time.Second,
		PingPeriod:      time.Duration(h.config.Peer.PingPeriod) * time.Second,
		MessageQueueLen: h.config.Peer.MessageQueueLen,
	})

	clientPeer.Peer = peer
	clientPeer.SetConnection(conn)

	return clientPeer, nil
}
