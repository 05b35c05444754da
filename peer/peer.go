package peer

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	defaultWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	defaultPongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	defaultPingPeriod = (defaultPongWait * 8) / 10

	// Maximum message size allowed from peer.
	defaultMaxMessageSize = 4096

	defaultMessageQueueLen = 32
)

// MessageListeners 消息监听
type MessageListeners struct {
	// OnMessage is invoked with each JSON frame read from the peer.
	OnMessage func(msg []byte) error

	OnDisconnect func() error
}

// Config 节点配置
type Config struct {

	// Time allowed to write a message to the peer.
	WriteWait time.Duration
	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration
	// Send pings to peer with this period. Must be less than pongWait.
	PingPeriod time.Duration
	// Maximum message size allowed from peer.
	MaxMessageSize int

	// MessageQueueLen bounds the send queue. A full queue drops the
	// frame instead of blocking the caller.
	MessageQueueLen int

	Listeners *MessageListeners
}

// Peer 节点封装了 websocket 通信底层接口. Frames are JSON text messages,
// one envelope per frame.
type Peer struct {
	id     string
	config *Config
	conn   *websocket.Conn
	send   chan []byte

	timeConnected time.Time

	connected int32
}

// NewPeer 创建一个新的节点
func NewPeer(id string, config *Config) *Peer {
	if config.WriteWait == 0 {
		config.WriteWait = defaultWriteWait
	}
	if config.PongWait == 0 {
		config.PongWait = defaultPongWait
	}
	if config.PingPeriod == 0 {
		config.PingPeriod = defaultPingPeriod
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = defaultMaxMessageSize
	}
	if config.MessageQueueLen == 0 {
		config.MessageQueueLen = defaultMessageQueueLen
	}

	if config.PingPeriod >= config.PongWait {
		config.PingPeriod = (config.PongWait * 9) / 10
	}
	return &Peer{
		id:     id,
		config: config,
		send:   make(chan []byte, config.MessageQueueLen),
	}
}

// ID peer id
func (p *Peer) ID() string {
	return p.id
}

// SetConnection bind connection , start
func (p *Peer) SetConnection(conn *websocket.Conn) {
	// Already connected?
	if !atomic.CompareAndSwapInt32(&p.connected, 0, 1) {
		return
	}

	p.conn = conn
	p.timeConnected = time.Now()

	go p.handleRead()
	go p.handleWrite()
}

func (p *Peer) handleRead() {
	defer func() {
		p.config.Listeners.OnDisconnect()
		p.disconnect()
	}()
	p.conn.SetReadLimit(int64(p.config.MaxMessageSize))
	p.conn.SetReadDeadline(time.Now().Add(p.config.PongWait))
	p.conn.SetPongHandler(func(string) error { p.conn.SetReadDeadline(time.Now().Add(p.config.PongWait)); return nil })
	for {
		messageType, message, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("peer %v: %v", p.id, err)
			}
			break
		}
		if messageType == websocket.CloseMessage {
			log.Printf("peer closed: %v", p.id)
			break
		}
		if err := p.config.Listeners.OnMessage(message); err != nil {
			log.Printf("peer %v: %v", p.id, err)
		}
	}
}

func (p *Peer) handleWrite() {
	ticker := time.NewTicker(p.config.PingPeriod)
	defer func() {
		ticker.Stop()
		p.disconnect()
	}()
	for {
		select {
		case message, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteWait))
			if !ok {
				// The hub closed the channel.
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// PushMessage queues a frame for delivery. A disconnected peer or a full
// queue drops the frame; a slow client must never stall the hub's
// dispatch loop.
func (p *Peer) PushMessage(message []byte) {
	if atomic.LoadInt32(&p.connected) == 0 {
		return
	}
	select {
	case p.send <- message:
	default:
		log.Printf("peer %v: send queue full, frame dropped", p.id)
	}
}

// Close close conn
func (p *Peer) Close() {
	if atomic.LoadInt32(&p.connected) == 0 {
		return
	}
	close(p.send)
}

// 断开连接
func (p *Peer) disconnect() {
	if !atomic.CompareAndSwapInt32(&p.connected, 1, 0) {
		return
	}
	p.conn.Close()
}
