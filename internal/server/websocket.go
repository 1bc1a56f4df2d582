package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// wsHub groups connections per room and remembers which user each
// connection belongs to, so a dropped socket can release that player's
// presence lease.
type wsHub struct {
	mu     sync.Mutex
	groups map[string]map[*websocket.Conn]string
}

func newWSHub() *wsHub {
	return &wsHub{
		groups: make(map[string]map[*websocket.Conn]string),
	}
}

func (h *wsHub) Add(roomID string, conn *websocket.Conn, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomID]
	if group == nil {
		group = make(map[*websocket.Conn]string)
		h.groups[roomID] = group
	}
	group[conn] = userID
}

// Remove drops a connection and reports whether the user still has
// another live connection to the room.
func (h *wsHub) Remove(roomID string, conn *websocket.Conn) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[roomID]
	if group == nil {
		return "", false
	}
	userID := group[conn]
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.groups, roomID)
		return userID, false
	}
	for _, other := range group {
		if other == userID {
			return userID, true
		}
	}
	return userID, false
}

func (h *wsHub) ConnectedUsers(roomID string) map[string]struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	users := make(map[string]struct{})
	for _, userID := range h.groups[roomID] {
		if userID != "" {
			users[userID] = struct{}{}
		}
	}
	return users
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *wsHub) Broadcast(roomID string, payload any) {
	h.mu.Lock()
	group := h.groups[roomID]
	conns := make([]*websocket.Conn, 0, len(group))
	for conn := range group {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.Remove(roomID, conn)
		}
	}
}

func (h *wsHub) CloseRoom(roomID string) {
	h.mu.Lock()
	group := h.groups[roomID]
	delete(h.groups, roomID)
	h.mu.Unlock()
	for conn := range group {
		_ = conn.Close()
	}
}

func (s *Server) handleRoomSocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	if _, exists := s.store.GetRoom(roomID); !exists {
		http.NotFound(w, r)
		return
	}
	userID := r.URL.Query().Get("user_id")
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected room_id=%s user_id=%s remote=%s", roomID, userID, r.RemoteAddr)
	s.ws.Add(roomID, conn, userID)
	if userID != "" {
		s.markPresence(roomID, userID, true)
	}
	if room, ok := s.store.GetRoom(roomID); ok {
		s.ws.Send(conn, s.snapshot(room))
	}
	go s.readWS(roomID, conn)
}

func (s *Server) readWS(roomID string, conn *websocket.Conn) {
	defer func() {
		userID, stillConnected := s.ws.Remove(roomID, conn)
		if userID != "" && !stillConnected {
			s.markPresence(roomID, userID, false)
		}
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			log.Printf("ws disconnected room_id=%s error=%v", roomID, err)
			return
		}
	}
}

// markPresence flips a player's online flag from the websocket lease.
func (s *Server) markPresence(roomID, userID string, online bool) {
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		player, ok := s.store.FindPlayerByUserID(room, userID)
		if !ok {
			return errPlayerNotFound
		}
		player.Online = online
		if online {
			player.LastSeenAt = timeNowUTC()
		}
		return nil
	})
	if err != nil {
		return
	}
	if err := s.persistPresence(room, userID, online); err != nil {
		log.Printf("presence persist failed room_id=%s user_id=%s error=%v", room.ID, userID, err)
	}
	if online {
		if woken := s.wakeRoom(room.ID); woken != nil {
			room = woken
		}
	}
	s.broadcastRoomUpdate(room)
}

func (s *Server) broadcastRoomUpdate(room *Room) {
	if s.ws != nil {
		s.ws.Broadcast(room.ID, s.snapshot(room))
	}
	s.updateGauges()
}
