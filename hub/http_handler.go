package hub

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/redchat-cluster/config"
	"github.com/redchat-cluster/database"
)

// start http server ,this function must be in a routine
func httplisten(hub *Hub, conf *config.ServerConfig) {

	// regist a service for client
	http.HandleFunc("/client", func(w http.ResponseWriter, r *http.Request) {
		handleClientWebSocket(hub, w, r)
	})

	http.HandleFunc("/user/register", func(w http.ResponseWriter, r *http.Request) {
		httpRegisterHandler(hub, w, r)
	})

	http.HandleFunc("/msg/send", func(w http.ResponseWriter, r *http.Request) {
		httpSendMsgHandler(hub, w, r)
	})

	http.HandleFunc("/q/rooms", func(w http.ResponseWriter, r *http.Request) {
		httpQueryRoomsHandler(hub, w, r)
	})

	http.HandleFunc("/q/messages", func(w http.ResponseWriter, r *http.Request) {
		httpQueryMessagesHandler(hub, w, r)
	})

	http.HandleFunc("/q/online", func(w http.ResponseWriter, r *http.Request) {
		httpQueryOnlineHandler(hub, w, r)
	})

	log.Println("listen on ", fmt.Sprintf("%s:%d", conf.ListenIP, conf.ListenPort))
	err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.ListenIP, conf.ListenPort), nil)

	if err != nil {
		log.Println("ListenAndServe: ", err)
		return
	}
}

// 处理来自客户端节点的连接
func handleClientWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	username := q.Get("username")
	nonce := q.Get("nonce")
	digest := q.Get("digest")

	if username == "" || nonce == "" || digest == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	// 校验digest及数据完整性
	if !checkDigest(hub.config.Server.Secret, fmt.Sprintf("%v%v", username, nonce), digest) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	userID, err := hub.identity.Resolve(username)
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := hub.identity.GetProfile(userID)
	if err != nil {
		writeError(w, err)
		return
	}

	// upgrade
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		handleHTTPErr(w, err)
		return
	}

	log.Printf("client %v connecting ", username)
	clientPeer, err := newClientPeer(hub, conn, user)
	if err != nil {
		handleHTTPErr(w, err)
		return
	}
	if err := hub.ConnectClient(clientPeer); err != nil {
		log.Println("connect:", err)
		clientPeer.Close()
	}
}

func httpRegisterHandler(hub *Hub, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	username := r.FormValue("username")
	if username == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	// the password arrives hashed; hashing policy belongs to the auth
	// layer in front of this service
	userID, err := hub.identity.Register(username, r.FormValue("password"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]uint64{"id": userID})
}

func httpSendMsgHandler(hub *Hub, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	username := r.FormValue("username")
	roomID := r.FormValue("room")
	text := r.FormValue("text")
	if username == "" || roomID == "" || text == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	userID, err := hub.identity.Resolve(username)
	if err != nil {
		writeError(w, err)
		return
	}
	user, err := hub.identity.GetProfile(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	msg, err := hub.SendChat(user, roomID, text, 0)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, msg)
}

// roomView is the query shape of a room: its id plus the participant
// display names (one for a named room, two for a private one).
type roomView struct {
	ID    string   `json:"id"`
	Names []string `json:"names"`
}

func httpQueryRoomsHandler(hub *Hub, w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	userID, err := hub.identity.Resolve(username)
	if err != nil {
		writeError(w, err)
		return
	}
	rooms, err := hub.resolver.ListMyRooms(userID)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]roomView, 0, len(rooms))
	for _, room := range rooms {
		views = append(views, roomView{ID: room.RoomID(), Names: room.Participants()})
	}
	writeJSON(w, views)
}

func httpQueryMessagesHandler(hub *Hub, w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	roomID := q.Get("room")
	if roomID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	offset, _ := strconv.ParseInt(q.Get("offset"), 10, 64)
	limit, err := strconv.ParseInt(q.Get("limit"), 10, 64)
	if err != nil || limit <= 0 {
		limit = 50
	}
	msgs, err := hub.messages.Recent(roomID, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, msgs)
}

func httpQueryOnlineHandler(hub *Hub, w http.ResponseWriter, r *http.Request) {
	ids, err := hub.presence.ListOnline()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, ids)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// writeError maps the store error taxonomy onto http statuses; caller
// input errors surface as-is, nothing is retried here.
func writeError(w http.ResponseWriter, err error) {
	switch err {
	case database.ErrNotFound:
		http.Error(w, err.Error(), http.StatusNotFound)
	case database.ErrDuplicateUsername:
		http.Error(w, err.Error(), http.StatusConflict)
	case database.ErrInvalidRoom, database.ErrAccessDenied:
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		handleHTTPErr(w, err)
	}
}

func handleHTTPErr(w http.ResponseWriter, err error) {
	log.Println(err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func checkDigest(secret, data, digest string) bool {
	h := md5.New()
	io.WriteString(h, data)
	io.WriteString(h, secret)
	return hex.EncodeToString(h.Sum(nil)) == digest
}
