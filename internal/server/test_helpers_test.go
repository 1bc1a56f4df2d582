package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"odd-one-out/internal/config"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(nil, config.Default())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func createRoom(t *testing.T, ts *httptest.Server, userID, playerName, roomName string) (roomID, joinCode string) {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/create-room", map[string]string{
		"user_id":     userID,
		"player_name": playerName,
		"room_name":   roomName,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	room := body["room"].(map[string]any)
	return room["room_id"].(string), room["join_code"].(string)
}

func joinRoom(t *testing.T, ts *httptest.Server, joinCode, userID string) int {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/join-room", map[string]string{
		"join_code": joinCode,
		"user_id":   userID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	player := body["player"].(map[string]any)
	return int(player["player_id"].(float64))
}

func startGame(t *testing.T, ts *httptest.Server, roomID, userID string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodPost, "/api/start-game", map[string]string{
		"room_id": roomID,
		"user_id": userID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return decodeBody(t, resp)
}

// newStartedRoom seats three players and starts the game.
func newStartedRoom(t *testing.T, ts *httptest.Server) (roomID string, users []string) {
	t.Helper()
	users = []string{"host-user", "user-two", "user-three"}
	roomID, joinCode := createRoom(t, ts, users[0], "Ada", "Friday Night")
	joinRoom(t, ts, joinCode, users[1])
	joinRoom(t, ts, joinCode, users[2])
	startGame(t, ts, roomID, users[0])
	return roomID, users
}

func submitCaption(t *testing.T, ts *httptest.Server, roomID, userID, text string) *http.Response {
	t.Helper()
	return doRequest(t, ts, http.MethodPost, "/api/submit-caption", map[string]string{
		"room_id": roomID,
		"user_id": userID,
		"text":    text,
	})
}

func submitVote(t *testing.T, ts *httptest.Server, roomID, userID string, votedFor int) *http.Response {
	t.Helper()
	return doRequest(t, ts, http.MethodPost, "/api/submit-vote", map[string]any{
		"room_id":   roomID,
		"user_id":   userID,
		"voted_for": votedFor,
	})
}

func fetchRoom(t *testing.T, ts *httptest.Server, roomID string) map[string]any {
	t.Helper()
	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/"+roomID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	return body["room"].(map[string]any)
}

func playerIDByUser(t *testing.T, srv *Server, roomID, userID string) int {
	t.Helper()
	room, ok := srv.store.GetRoom(roomID)
	if !ok {
		t.Fatalf("room %s not found", roomID)
	}
	player, ok := srv.store.FindPlayerByUserID(room, userID)
	if !ok {
		t.Fatalf("player for user %s not found", userID)
	}
	return player.ID
}
