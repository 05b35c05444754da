package main

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"github.com/redchat-cluster/wire"
)

var (
	addr     = flag.String("addr", "localhost:8080", "server address")
	username = flag.String("user", "robot", "username to connect as")
	room     = flag.String("room", "0", "room to chat into")
	secret   = flag.String("secret", "xxx123456", "server secret")
)

func login(username, addr, secret string) (*websocket.Conn, error) {
	nonce := fmt.Sprint(time.Now().UnixNano())
	h := md5.New()
	io.WriteString(h, username)
	io.WriteString(h, nonce)
	io.WriteString(h, secret)

	query := fmt.Sprintf("username=%v&nonce=%v&digest=%v", username, nonce, hex.EncodeToString(h.Sum(nil)))

	u := url.URL{Scheme: "ws", Host: addr, Path: "/client", RawQuery: query}
	log.Printf("connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Println("dial:", err)
		return nil, err
	}
	return conn, nil
}

func readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Println("read:", err)
			return
		}
		env, err := wire.ParseEnvelope(raw)
		if err != nil {
			log.Println("bad frame:", err)
			continue
		}
		switch env.Type {
		case wire.EventMessage:
			msg, err := env.Chat()
			if err != nil {
				continue
			}
			log.Printf("[%v] %v: %v", msg.RoomID, msg.From, msg.Message)
		case wire.EventConnect, wire.EventDisconnect:
			p, err := env.Presence()
			if err != nil {
				continue
			}
			log.Printf("* %v is %v", p.Username, env.Type+"ed")
		}
	}
}

func robot(conn *websocket.Conn, room string, quit chan os.Signal) {
	ticker := time.NewTicker(time.Second * 5)
	defer ticker.Stop()
	n := 0
	for {
		select {
		case <-ticker.C:
			n++
			msg := &wire.ChatMsg{
				RoomID:  room,
				Message: fmt.Sprintf("hello, im robot (%d)", n),
			}
			raw, _ := json.Marshal(msg)
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				log.Println("write:", err)
				return
			}
		case <-quit:
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
			return
		}
	}
}

func main() {
	flag.Parse()

	conn, err := login(*username, *addr, *secret)
	if err != nil {
		os.Exit(1)
	}
	go readLoop(conn)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)

	robot(conn, *room, quit)
}
