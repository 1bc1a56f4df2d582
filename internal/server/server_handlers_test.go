package server

import (
	"net/http"
	"testing"
)

func TestCreateRoom(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/create-room", map[string]string{
		"user_id":     "host-user",
		"player_name": "Ada",
		"room_name":   "Friday Night",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("expected success, got %#v", body)
	}
	room := body["room"].(map[string]any)
	if room["status"] != statusLobby || room["phase"] != phaseLobby {
		t.Fatalf("expected fresh lobby, got status=%v phase=%v", room["status"], room["phase"])
	}
	code := room["join_code"].(string)
	if len(code) != 6 {
		t.Fatalf("expected 6 character join code, got %q", code)
	}
	player := body["player"].(map[string]any)
	if player["is_host"] != true {
		t.Fatalf("expected creator to be host, got %#v", player)
	}
	if player["alias"] != "Ada" {
		t.Fatalf("expected requested alias, got %v", player["alias"])
	}
	if player["token"].(string) == "" {
		t.Fatal("expected a player token")
	}
}

func TestCreateRoomGeneratesAlias(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/create-room", map[string]string{
		"user_id":   "host-user",
		"room_name": "Friday Night",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	alias := body["player"].(map[string]any)["alias"].(string)
	if alias == "" {
		t.Fatal("expected a generated alias")
	}
}

func TestCreateRoomRejectsMissingFields(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/create-room", map[string]string{
		"user_id": "host-user",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != false || body["error"] == "" {
		t.Fatalf("expected failure body, got %#v", body)
	}
}

func TestJoinRoomByCode(t *testing.T) {
	_, ts := newTestServer(t)

	_, joinCode := createRoom(t, ts, "host-user", "Ada", "Friday Night")
	resp := doRequest(t, ts, http.MethodPost, "/api/join-room", map[string]string{
		"join_code": joinCode,
		"user_id":   "user-two",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	player := body["player"].(map[string]any)
	if player["is_host"] != false {
		t.Fatalf("expected non-host joiner, got %#v", player)
	}
	if player["alias"].(string) == "" {
		t.Fatal("expected an assigned alias")
	}
}

func TestJoinRoomUnknownCode(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodPost, "/api/join-room", map[string]string{
		"join_code": "ZZZZ99",
		"user_id":   "user-two",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestJoinRoomIsIdempotentPerUser(t *testing.T) {
	_, ts := newTestServer(t)

	_, joinCode := createRoom(t, ts, "host-user", "Ada", "Friday Night")
	first := joinRoom(t, ts, joinCode, "user-two")
	again := joinRoom(t, ts, joinCode, "user-two")
	if first != again {
		t.Fatalf("expected same player id on rejoin, got %d and %d", first, again)
	}
}

func TestJoinRoomRejoinsMidGame(t *testing.T) {
	_, ts := newTestServer(t)

	roomID, users := newStartedRoom(t, ts)
	room := fetchRoom(t, ts, roomID)
	joinCode := room["join_code"].(string)

	// an existing player reconnects fine, a stranger does not
	resp := doRequest(t, ts, http.MethodPost, "/api/join-room", map[string]string{
		"join_code": joinCode,
		"user_id":   users[1],
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	resp = doRequest(t, ts, http.MethodPost, "/api/join-room", map[string]string{
		"join_code": joinCode,
		"user_id":   "stranger",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestJoinRoomFull(t *testing.T) {
	srv, ts := newTestServer(t)
	srv.cfg.MaxPlayersPerRoom = 2

	_, joinCode := createRoom(t, ts, "host-user", "Ada", "Friday Night")
	joinRoom(t, ts, joinCode, "user-two")
	resp := doRequest(t, ts, http.MethodPost, "/api/join-room", map[string]string{
		"join_code": joinCode,
		"user_id":   "user-three",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestStartGameRequiresHost(t *testing.T) {
	_, ts := newTestServer(t)

	roomID, joinCode := createRoom(t, ts, "host-user", "Ada", "Friday Night")
	joinRoom(t, ts, joinCode, "user-two")
	joinRoom(t, ts, joinCode, "user-three")

	resp := doRequest(t, ts, http.MethodPost, "/api/start-game", map[string]string{
		"room_id": roomID,
		"user_id": "user-two",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, resp.StatusCode)
	}
}

func TestStartGameRequiresEnoughPlayers(t *testing.T) {
	_, ts := newTestServer(t)

	roomID, _ := createRoom(t, ts, "host-user", "Ada", "Friday Night")
	resp := doRequest(t, ts, http.MethodPost, "/api/start-game", map[string]string{
		"room_id": roomID,
		"user_id": "host-user",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestStartGameCreatesAllRounds(t *testing.T) {
	srv, ts := newTestServer(t)

	roomID, _ := newStartedRoom(t, ts)
	room := fetchRoom(t, ts, roomID)
	if room["status"] != statusInProgress {
		t.Fatalf("expected status in_progress, got %v", room["status"])
	}
	if room["phase"] != phaseCaptioning {
		t.Fatalf("expected captioning phase, got %v", room["phase"])
	}
	if int(room["current_round"].(float64)) != 1 {
		t.Fatalf("expected current round 1, got %v", room["current_round"])
	}
	if int(room["total_rounds"].(float64)) != srv.cfg.RoundsPerGame {
		t.Fatalf("expected %d rounds, got %v", srv.cfg.RoundsPerGame, room["total_rounds"])
	}
	if room["phase_deadline"].(string) == "" {
		t.Fatal("expected a phase deadline")
	}

	state, _ := srv.store.GetRoom(roomID)
	if state.ImpostorID == 0 {
		t.Fatal("expected an impostor to be picked")
	}
	for _, round := range state.Rounds {
		if round.RealImagePath == round.FakeImagePath {
			t.Fatalf("round %d pairs the same image with itself", round.Number)
		}
		if round.Category == "" {
			t.Fatalf("round %d has no category", round.Number)
		}
	}
}

func TestStartGameTwiceRejected(t *testing.T) {
	_, ts := newTestServer(t)

	roomID, users := newStartedRoom(t, ts)
	resp := doRequest(t, ts, http.MethodPost, "/api/start-game", map[string]string{
		"room_id": roomID,
		"user_id": users[0],
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestSnapshotHidesImpostorBeforeFinalResults(t *testing.T) {
	_, ts := newTestServer(t)

	roomID, _ := newStartedRoom(t, ts)
	room := fetchRoom(t, ts, roomID)
	if _, leaked := room["final_results"]; leaked {
		t.Fatal("final results should not appear mid-game")
	}
	if _, leaked := room["impostor_id"]; leaked {
		t.Fatal("impostor must stay hidden until the final results")
	}
}

func TestCaptionOutsidePhaseRejected(t *testing.T) {
	_, ts := newTestServer(t)

	roomID, _ := createRoom(t, ts, "host-user", "Ada", "Friday Night")
	resp := submitCaption(t, ts, roomID, "host-user", "a daring caption")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestDuplicateCaptionRejected(t *testing.T) {
	_, ts := newTestServer(t)

	roomID, users := newStartedRoom(t, ts)
	resp := submitCaption(t, ts, roomID, users[0], "first caption")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	resp = submitCaption(t, ts, roomID, users[0], "second caption")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestLeaveRoomAlwaysSucceeds(t *testing.T) {
	srv, ts := newTestServer(t)

	roomID, users := newStartedRoom(t, ts)
	playerID := playerIDByUser(t, srv, roomID, users[1])

	resp := doRequest(t, ts, http.MethodPost, "/api/leave-room", map[string]any{
		"player_id": playerID,
		"user_id":   users[1],
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != true || body["removed"] != true {
		t.Fatalf("expected removal, got %#v", body)
	}

	// leaving again is still a success, just a no-op
	resp = doRequest(t, ts, http.MethodPost, "/api/leave-room", map[string]any{
		"player_id": playerID,
		"user_id":   users[1],
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body = decodeBody(t, resp)
	if body["success"] != true || body["removed"] != false {
		t.Fatalf("expected no-op success, got %#v", body)
	}
}

func TestLeaveRoomRequiresMatchingUser(t *testing.T) {
	srv, ts := newTestServer(t)

	roomID, users := newStartedRoom(t, ts)
	playerID := playerIDByUser(t, srv, roomID, users[1])

	// no identity at all is a bad request
	resp := doRequest(t, ts, http.MethodPost, "/api/leave-room", map[string]any{
		"player_id": playerID,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	// someone else's user id cannot remove the player, even with force
	resp = doRequest(t, ts, http.MethodPost, "/api/leave-room", map[string]any{
		"player_id":    playerID,
		"user_id":      "stranger",
		"force_delete": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["removed"] != false {
		t.Fatalf("expected nothing removed, got %#v", body)
	}
	state, ok := srv.store.GetRoom(roomID)
	if !ok {
		t.Fatal("expected the room to survive")
	}
	if _, seated := srv.store.FindPlayerByUserID(state, users[1]); !seated {
		t.Fatal("expected the player still seated")
	}
}

func TestHostLeaveTransfersHost(t *testing.T) {
	srv, ts := newTestServer(t)

	roomID, users := newStartedRoom(t, ts)
	hostID := playerIDByUser(t, srv, roomID, users[0])
	secondID := playerIDByUser(t, srv, roomID, users[1])

	resp := doRequest(t, ts, http.MethodPost, "/api/leave-room", map[string]any{
		"player_id": hostID,
		"user_id":   users[0],
	})
	body := decodeBody(t, resp)
	if int(body["new_host_id"].(float64)) != secondID {
		t.Fatalf("expected host to pass to earliest joined player %d, got %v", secondID, body["new_host_id"])
	}

	state, _ := srv.store.GetRoom(roomID)
	hosts := 0
	for _, player := range state.Players {
		if player.IsHost {
			hosts++
		}
	}
	if hosts != 1 || state.HostID != secondID {
		t.Fatalf("expected exactly one host %d, got %d hosts host_id=%d", secondID, hosts, state.HostID)
	}
}

func TestTransferHost(t *testing.T) {
	srv, ts := newTestServer(t)

	roomID, joinCode := createRoom(t, ts, "host-user", "Ada", "Friday Night")
	joinRoom(t, ts, joinCode, "user-two")

	resp := doRequest(t, ts, http.MethodPost, "/api/transfer-host", map[string]string{
		"room_id":         roomID,
		"current_host_id": "host-user",
		"new_host_id":     "user-two",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	state, _ := srv.store.GetRoom(roomID)
	newHost, _ := srv.store.FindPlayerByUserID(state, "user-two")
	if !newHost.IsHost || state.HostID != newHost.ID {
		t.Fatal("expected host flag to move to the new host")
	}

	// the old host cannot transfer again
	resp = doRequest(t, ts, http.MethodPost, "/api/transfer-host", map[string]string{
		"room_id":         roomID,
		"current_host_id": "host-user",
		"new_host_id":     "user-two",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, resp.StatusCode)
	}
}

func TestDeleteRoomIsIdempotent(t *testing.T) {
	srv, ts := newTestServer(t)

	roomID, _ := createRoom(t, ts, "host-user", "Ada", "Friday Night")
	hostID := playerIDByUser(t, srv, roomID, "host-user")

	// a room with seated players is marked completed, not deleted
	resp := doRequest(t, ts, http.MethodPost, "/api/delete-room", map[string]string{
		"room_id": roomID,
		"host_id": "host-user",
	})
	body := decodeBody(t, resp)
	if body["deleted"] != false {
		t.Fatalf("expected occupied room to survive, got %#v", body)
	}

	doRequest(t, ts, http.MethodPost, "/api/leave-room", map[string]any{
		"player_id": hostID,
		"user_id":   "host-user",
	})
	resp = doRequest(t, ts, http.MethodPost, "/api/delete-room", map[string]string{
		"room_id": roomID,
	})
	body = decodeBody(t, resp)
	if body["deleted"] != true {
		t.Fatalf("expected empty room to be deleted, got %#v", body)
	}

	// deleting a gone room is a benign success
	resp = doRequest(t, ts, http.MethodPost, "/api/delete-room", map[string]string{
		"room_id": roomID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body = decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("expected benign success, got %#v", body)
	}
}

func TestRoundImageURLPerPlayer(t *testing.T) {
	srv, ts := newTestServer(t)

	roomID, users := newStartedRoom(t, ts)
	state, _ := srv.store.GetRoom(roomID)
	round := currentRound(state)

	var impostorUser string
	for _, user := range users {
		player, _ := srv.store.FindPlayerByUserID(state, user)
		if player.ID == state.ImpostorID {
			impostorUser = user
		}
	}
	if impostorUser == "" {
		t.Fatal("expected one of the seated players to be the impostor")
	}

	for _, user := range users {
		resp := doRequest(t, ts, http.MethodGet, "/api/round-image-url?key="+roomID+"&user_id="+user, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
		}
		body := decodeBody(t, resp)
		url := body["url"].(string)
		if user == impostorUser && url != round.FakeImageURL {
			t.Fatalf("expected impostor to see the odd image, got %q", url)
		}
		if user != impostorUser && url != round.RealImageURL {
			t.Fatalf("expected %s to see the real image, got %q", user, url)
		}
	}
}

func TestHeartbeatRefreshesPresence(t *testing.T) {
	srv, ts := newTestServer(t)

	roomID, users := newStartedRoom(t, ts)
	state, _ := srv.store.GetRoom(roomID)
	player, _ := srv.store.FindPlayerByUserID(state, users[1])
	player.Online = false

	resp := doRequest(t, ts, http.MethodPost, "/api/heartbeat", map[string]string{
		"room_id": roomID,
		"user_id": users[1],
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	state, _ = srv.store.GetRoom(roomID)
	player, _ = srv.store.FindPlayerByUserID(state, users[1])
	if !player.Online {
		t.Fatal("expected heartbeat to mark the player online")
	}
}

func TestSnapshotSafeDuringPresenceChurn(t *testing.T) {
	srv, ts := newTestServer(t)

	roomID, users := newStartedRoom(t, ts)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			srv.markPresence(roomID, users[1], false)
			srv.markPresence(roomID, users[1], true)
		}
	}()

	for i := 0; i < 100; i++ {
		room := fetchRoom(t, ts, roomID)
		if room["room_id"] != roomID {
			t.Fatalf("unexpected snapshot %#v", room)
		}
	}
	close(stop)
	<-done
}

func TestListRoomsFiltersInactive(t *testing.T) {
	srv, ts := newTestServer(t)

	activeID, _ := createRoom(t, ts, "host-user", "Ada", "Open Table")
	dormantID, _ := createRoom(t, ts, "other-user", "Bob", "Sleepy Table")
	state, _ := srv.store.GetRoom(dormantID)
	state.Status = statusDormant

	resp := doRequest(t, ts, http.MethodGet, "/api/rooms", nil)
	body := decodeBody(t, resp)
	rooms := body["rooms"].([]any)
	if len(rooms) != 1 {
		t.Fatalf("expected one active room, got %d", len(rooms))
	}
	listed := rooms[0].(map[string]any)
	if listed["room_id"] != activeID {
		t.Fatalf("expected %s in listing, got %v", activeID, listed["room_id"])
	}
}

func TestGetRoomNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/api/rooms/room-999", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doRequest(t, ts, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	createRoom(t, ts, "host-user", "Ada", "Friday Night")
	resp := doRequest(t, ts, http.MethodGet, "/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}
