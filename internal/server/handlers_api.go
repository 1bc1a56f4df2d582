package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var errNotHost = errors.New("only the host can do that")

type createRoomRequest struct {
	UserID     string `json:"user_id"`
	PlayerName string `json:"player_name"`
	RoomName   string `json:"room_name"`
}

type joinRoomRequest struct {
	JoinCode string `json:"join_code"`
	UserID   string `json:"user_id"`
}

type startGameRequest struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

type captionRequest struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type voteRequest struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	VotedFor int    `json:"voted_for"`
}

type leaveRoomRequest struct {
	PlayerID    int    `json:"player_id"`
	UserID      string `json:"user_id"`
	ForceDelete bool   `json:"force_delete"`
}

type transferHostRequest struct {
	RoomID        string `json:"room_id"`
	CurrentHostID string `json:"current_host_id"`
	NewHostID     string `json:"new_host_id"`
}

type deleteRoomRequest struct {
	RoomID string `json:"room_id"`
	HostID string `json:"host_id"`
}

type roundMetaRequest struct {
	RoomID  string `json:"room_id"`
	RoundID int    `json:"round_id"`
	UserID  string `json:"user_id"`
	Action  string `json:"action"`
}

type heartbeatRequest struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

type returnToLobbyRequest struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

func playerPayload(room *Room, player *Player) map[string]any {
	return map[string]any{
		"player_id": player.ID,
		"user_id":   player.UserID,
		"alias":     player.Alias,
		"is_host":   player.IsHost,
		"token":     room.PlayerTokens[player.ID],
	}
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "create") {
		return
	}
	var req createRoomRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "user_id, player_name and room_name are required")
		return
	}
	userID, err := validateUserID(req.UserID)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	playerName, err := validatePlayerName(req.PlayerName)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	roomName, err := validateRoomName(req.RoomName)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	room, host := s.store.CreateRoom(userID, playerName, roomName)
	if err := s.persistRoomCreated(room, host); err != nil {
		// the insert transaction failed, so nothing is orphaned in the
		// database; drop the in-memory room as well
		s.store.RemoveRoom(room.ID)
		log.Printf("room create persist failed join_code=%s error=%v", room.JoinCode, err)
		writeFailure(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	s.metrics.roomsCreated.Inc()
	s.updateGauges()
	log.Printf("room created room_id=%s join_code=%s host=%s", room.ID, room.JoinCode, host.Alias)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"room":    s.snapshot(room),
		"player":  playerPayload(room, host),
	})
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "join") {
		return
	}
	var req joinRoomRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "join_code and user_id are required")
		return
	}
	userID, err := validateUserID(req.UserID)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	code := strings.TrimSpace(req.JoinCode)
	if code == "" {
		writeFailure(w, http.StatusBadRequest, "join_code is required")
		return
	}

	room, player, err := s.store.JoinRoom(code, userID, s.cfg.MaxPlayersPerRoom)
	if err != nil {
		if errors.Is(err, errRoomNotFound) {
			writeFailure(w, http.StatusNotFound, "room not found")
			return
		}
		writeFailure(w, http.StatusConflict, err.Error())
		return
	}
	if err := s.persistPlayerJoined(room, player); err != nil {
		log.Printf("join persist failed room_id=%s user_id=%s error=%v", room.ID, userID, err)
		writeFailure(w, http.StatusInternalServerError, "failed to join room")
		return
	}
	// a reconnect into a dormant room brings it back to life
	if woken := s.wakeRoom(room.ID); woken != nil {
		room = woken
	}
	log.Printf("player joined room_id=%s player_id=%d alias=%s", room.ID, player.ID, player.Alias)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"room":    s.snapshot(room),
		"player":  playerPayload(room, player),
	})
	s.broadcastRoomUpdate(room)
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "start") {
		return
	}
	var req startGameRequest
	if err := readJSON(r.Body, &req); err != nil || req.RoomID == "" {
		writeFailure(w, http.StatusBadRequest, "room_id and user_id are required")
		return
	}
	now := timeNowUTC()
	room, err := s.store.UpdateRoom(req.RoomID, func(room *Room) error {
		caller, ok := s.store.FindPlayerByUserID(room, req.UserID)
		if !ok || caller.ID != room.HostID {
			return errNotHost
		}
		if room.Phase != phaseLobby {
			return errors.New("game already started")
		}
		online := onlinePlayers(room)
		if len(online) < s.cfg.MinPlayersToStart {
			return errors.New("not enough players")
		}
		pairs, err := selectRoundPairs(s.catalog, s.cfg.RoundsPerGame, s.cfg.PairAttemptsPerRound, s.rng)
		if err != nil {
			return err
		}
		room.ImpostorID = online[s.rng.Intn(len(online))].ID
		room.Rounds = make([]RoundState, 0, len(pairs))
		for i, pair := range pairs {
			room.Rounds = append(room.Rounds, RoundState{
				Number:        i + 1,
				RealImageID:   pair.Real.DBID,
				FakeImageID:   pair.Fake.DBID,
				RealImagePath: pair.Real.FilePath,
				FakeImagePath: pair.Fake.FilePath,
				RealImageURL:  pair.Real.FilePath,
				FakeImageURL:  pair.Fake.FilePath,
				Category:      pair.Category,
			})
		}
		room.Status = statusInProgress
		room.CurrentRound = 1
		s.applyPhase(room, phaseCaptioning, now)
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errRoomNotFound):
			writeFailure(w, http.StatusNotFound, "room not found")
		case errors.Is(err, errNotHost):
			writeFailure(w, http.StatusForbidden, err.Error())
		default:
			writeFailure(w, http.StatusConflict, err.Error())
		}
		return
	}
	if err := s.persistStartGame(room); err != nil {
		log.Printf("start persist failed room_id=%s error=%v", room.ID, err)
		writeFailure(w, http.StatusInternalServerError, "failed to start game")
		return
	}
	s.metrics.roundsStarted.Inc()
	log.Printf("game started room_id=%s rounds=%d", room.ID, len(room.Rounds))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"room":    s.snapshot(room),
	})
	s.broadcastRoomUpdate(room)
	s.schedulePhaseTimer(room)
}

func (s *Server) handleSubmitCaption(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "caption") {
		return
	}
	var req captionRequest
	if err := readJSON(r.Body, &req); err != nil || req.RoomID == "" {
		writeFailure(w, http.StatusBadRequest, "room_id, user_id and text are required")
		return
	}
	text, err := validateCaption(req.Text)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	var entry *CaptionEntry
	room, err := s.store.UpdateRoom(req.RoomID, func(room *Room) error {
		if room.Phase != phaseCaptioning {
			return errors.New("captions not accepted in this phase")
		}
		player, ok := s.store.FindPlayerByUserID(room, req.UserID)
		if !ok {
			return errPlayerNotFound
		}
		round := currentRound(room)
		if round == nil {
			return errors.New("round not started")
		}
		for _, caption := range round.Captions {
			if caption.PlayerID == player.ID {
				return errors.New("caption already submitted")
			}
		}
		round.Captions = append(round.Captions, CaptionEntry{
			PlayerID:    player.ID,
			Text:        text,
			SubmittedAt: timeNowUTC(),
		})
		entry = &round.Captions[len(round.Captions)-1]
		return nil
	})
	if err != nil {
		if errors.Is(err, errRoomNotFound) || errors.Is(err, errPlayerNotFound) {
			writeFailure(w, http.StatusNotFound, err.Error())
			return
		}
		writeFailure(w, http.StatusConflict, err.Error())
		return
	}
	if err := s.persistCaption(room, entry); err != nil {
		log.Printf("caption persist failed room_id=%s error=%v", room.ID, err)
		writeFailure(w, http.StatusInternalServerError, "failed to save caption")
		return
	}
	s.metrics.captionsSubmitted.Inc()
	log.Printf("caption submitted room_id=%s player_id=%d", room.ID, entry.PlayerID)
	if updated, advanced := s.tryEarlyAdvance(room.ID, phaseCaptioning, captionsComplete); advanced {
		room = updated
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"room":    s.snapshot(room),
	})
	s.broadcastRoomUpdate(room)
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "vote") {
		return
	}
	var req voteRequest
	if err := readJSON(r.Body, &req); err != nil || req.RoomID == "" || req.VotedFor <= 0 {
		writeFailure(w, http.StatusBadRequest, "room_id, user_id and voted_for are required")
		return
	}
	var entry *VoteEntry
	room, err := s.store.UpdateRoom(req.RoomID, func(room *Room) error {
		if room.Phase != phaseVoting {
			return errors.New("votes not accepted in this phase")
		}
		voter, ok := s.store.FindPlayerByUserID(room, req.UserID)
		if !ok {
			return errPlayerNotFound
		}
		if voter.ID == req.VotedFor {
			return errors.New("cannot vote for yourself")
		}
		round := currentRound(room)
		if round == nil {
			return errors.New("round not started")
		}
		for _, vote := range round.Votes {
			if vote.VoterID == voter.ID {
				return errors.New("vote already submitted")
			}
		}
		target := false
		for _, caption := range round.Captions {
			if caption.PlayerID == req.VotedFor {
				target = true
				break
			}
		}
		if !target {
			return errors.New("vote target has no caption")
		}
		round.Votes = append(round.Votes, VoteEntry{
			VoterID:    voter.ID,
			VotedForID: req.VotedFor,
		})
		entry = &round.Votes[len(round.Votes)-1]
		return nil
	})
	if err != nil {
		if errors.Is(err, errRoomNotFound) || errors.Is(err, errPlayerNotFound) {
			writeFailure(w, http.StatusNotFound, err.Error())
			return
		}
		writeFailure(w, http.StatusConflict, err.Error())
		return
	}
	if err := s.persistVote(room, entry); err != nil {
		log.Printf("vote persist failed room_id=%s error=%v", room.ID, err)
		writeFailure(w, http.StatusInternalServerError, "failed to save vote")
		return
	}
	s.metrics.votesCast.Inc()
	log.Printf("vote submitted room_id=%s voter_id=%d voted_for=%d", room.ID, entry.VoterID, entry.VotedForID)
	if updated, advanced := s.tryEarlyAdvance(room.ID, phaseVoting, votesComplete); advanced {
		room = updated
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"room":    s.snapshot(room),
	})
	s.broadcastRoomUpdate(room)
}

// tryEarlyAdvance moves a room forward as soon as every online player
// has submitted, instead of waiting out the deadline.
func (s *Server) tryEarlyAdvance(roomID, expectedPhase string, complete func(*Room) bool) (*Room, bool) {
	now := timeNowUTC()
	advanced := false
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if room.Phase != expectedPhase || !complete(room) {
			return nil
		}
		if _, err := s.advanceRoom(room, transitionManual, now); err != nil {
			return err
		}
		advanced = true
		return nil
	})
	if err != nil || !advanced {
		return room, false
	}
	if err := s.persistPhase(room, "phase_advanced", EventPayload{Phase: room.Phase, Reason: "all_submitted"}); err != nil {
		log.Printf("early-advance persist failed room_id=%s error=%v", room.ID, err)
	}
	log.Printf("room advanced room_id=%s phase=%s reason=all_submitted", room.ID, room.Phase)
	if room.Phase == phaseCaptioning {
		s.metrics.roundsStarted.Inc()
	}
	if room.Phase == phaseFinalResults {
		s.cancelPhaseTimer(room.ID)
	} else {
		s.schedulePhaseTimer(room)
	}
	return room, true
}

// handleLeaveRoom deliberately reports success even for rooms or
// players that are already gone.
func (s *Server) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	var req leaveRoomRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID <= 0 || req.UserID == "" {
		writeFailure(w, http.StatusBadRequest, "player_id and user_id are required")
		return
	}
	room, outcome, err := s.store.LeaveByPlayerID(req.PlayerID, req.UserID, req.ForceDelete)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"removed": false,
		})
		return
	}
	if err := s.persistLeave(room, outcome); err != nil {
		log.Printf("leave persist failed room_id=%s error=%v", room.ID, err)
	}
	resp := map[string]any{
		"success": true,
		"removed": true,
		"status":  room.Status,
	}
	if outcome.NewHostID != 0 {
		resp["new_host_id"] = outcome.NewHostID
		log.Printf("host transferred room_id=%s new_host_id=%d reason=host_left", room.ID, outcome.NewHostID)
	}
	if outcome.Deleted {
		s.cancelPhaseTimer(room.ID)
		s.ws.CloseRoom(room.ID)
		if err := s.deleteRoomCascade(room.DBID, "force_delete"); err != nil {
			log.Printf("room delete failed room_id=%s error=%v", room.ID, err)
		}
		resp["deleted"] = true
		log.Printf("room deleted room_id=%s reason=force_delete", room.ID)
	} else {
		if outcome.BecameDormant {
			s.cancelPhaseTimer(room.ID)
			if err := s.persistRoomStatus(room, "room_dormant", EventPayload{Status: room.Status}); err != nil {
				log.Printf("dormant persist failed room_id=%s error=%v", room.ID, err)
			}
			log.Printf("room dormant room_id=%s reason=empty", room.ID)
		}
		s.broadcastRoomUpdate(room)
	}
	s.updateGauges()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransferHost(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "transfer") {
		return
	}
	var req transferHostRequest
	if err := readJSON(r.Body, &req); err != nil || req.RoomID == "" || req.NewHostID == "" {
		writeFailure(w, http.StatusBadRequest, "room_id, current_host_id and new_host_id are required")
		return
	}
	room, next, err := s.store.TransferHost(req.RoomID, req.CurrentHostID, req.NewHostID)
	if err != nil {
		switch {
		case errors.Is(err, errRoomNotFound):
			writeFailure(w, http.StatusNotFound, "room not found")
		case errors.Is(err, errPlayerNotFound):
			writeFailure(w, http.StatusNotFound, "player not found")
		case err.Error() == "not the host":
			writeFailure(w, http.StatusForbidden, err.Error())
		default:
			writeFailure(w, http.StatusConflict, err.Error())
		}
		return
	}
	if err := s.persistHostTransfer(room, next); err != nil {
		log.Printf("transfer persist failed room_id=%s error=%v", room.ID, err)
		writeFailure(w, http.StatusInternalServerError, "failed to transfer host")
		return
	}
	log.Printf("host transferred room_id=%s new_host_id=%d", room.ID, next.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"room":    s.snapshot(room),
	})
	s.broadcastRoomUpdate(room)
}

// handleDeleteRoom deletes only an empty room whose host is unchanged;
// anything else is marked completed instead. Already-gone rooms are a
// benign success.
func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	var req deleteRoomRequest
	if err := readJSON(r.Body, &req); err != nil || req.RoomID == "" {
		writeFailure(w, http.StatusBadRequest, "room_id is required")
		return
	}
	room, ok := s.store.GetRoom(req.RoomID)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"deleted": false,
		})
		return
	}

	hostUnchanged := true
	if req.HostID != "" {
		if host, found := findPlayerIn(room, room.HostID); !found || host.UserID != req.HostID {
			hostUnchanged = false
		}
	}
	if len(room.Players) > 0 || !hostUnchanged {
		updated, err := s.store.UpdateRoom(req.RoomID, func(room *Room) error {
			room.Status = statusCompleted
			return nil
		})
		if err == nil {
			room = updated
			if err := s.persistRoomStatus(room, "room_completed", EventPayload{Status: room.Status}); err != nil {
				log.Printf("complete persist failed room_id=%s error=%v", room.ID, err)
			}
			s.broadcastRoomUpdate(room)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"deleted": false,
			"status":  statusCompleted,
		})
		return
	}

	removed, _ := s.store.RemoveRoom(req.RoomID)
	if removed != nil {
		s.cancelPhaseTimer(removed.ID)
		s.ws.CloseRoom(removed.ID)
		if err := s.deleteRoomCascade(removed.DBID, "host_delete"); err != nil {
			log.Printf("room delete failed room_id=%s error=%v", removed.ID, err)
		}
		log.Printf("room deleted room_id=%s reason=host_delete", removed.ID)
	}
	s.updateGauges()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": true,
	})
}

func (s *Server) handleRoundMeta(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "round_meta") {
		return
	}
	var req roundMetaRequest
	if err := readJSON(r.Body, &req); err != nil || req.RoomID == "" || req.UserID == "" {
		writeFailure(w, http.StatusBadRequest, "room_id, user_id and action are required")
		return
	}
	var expected string
	switch req.Action {
	case actionSkipTimer:
		expected = phaseCaptioning
	case actionSkipVoting:
		expected = phaseVoting
	default:
		writeFailure(w, http.StatusBadRequest, "unknown action")
		return
	}
	now := timeNowUTC()
	room, err := s.store.UpdateRoom(req.RoomID, func(room *Room) error {
		caller, ok := s.store.FindPlayerByUserID(room, req.UserID)
		if !ok || caller.ID != room.HostID {
			return errNotHost
		}
		if room.Phase != expected {
			return errors.New("action not available in this phase")
		}
		if now.Before(room.SkipReadyAt) {
			return errors.New("skip on cooldown")
		}
		if req.RoundID != 0 && req.RoundID != room.CurrentRound {
			return errors.New("round already advanced")
		}
		if _, err := s.advanceRoom(room, transitionManual, now); err != nil {
			return err
		}
		room.SkipReadyAt = now.Add(time.Duration(s.cfg.SkipCooldownSeconds) * time.Second)
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errRoomNotFound):
			writeFailure(w, http.StatusNotFound, "room not found")
		case errors.Is(err, errNotHost):
			writeFailure(w, http.StatusForbidden, err.Error())
		default:
			writeFailure(w, http.StatusConflict, err.Error())
		}
		return
	}
	if err := s.persistPhase(room, "phase_advanced", EventPayload{Phase: room.Phase, Reason: req.Action}); err != nil {
		log.Printf("skip persist failed room_id=%s error=%v", room.ID, err)
	}
	log.Printf("room advanced room_id=%s phase=%s reason=%s", room.ID, room.Phase, req.Action)
	if room.Phase == phaseCaptioning {
		s.metrics.roundsStarted.Inc()
	}
	if room.Phase == phaseFinalResults {
		s.cancelPhaseTimer(room.ID)
	} else {
		s.schedulePhaseTimer(room)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"room":    s.snapshot(room),
	})
	s.broadcastRoomUpdate(room)
}

// handleRoundImageURL resolves the image the requesting player should
// see this round, repairing missing URLs from the catalog paths first.
func (s *Server) handleRoundImageURL(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("key")
	if roomID == "" {
		writeFailure(w, http.StatusBadRequest, "key is required")
		return
	}
	userID := r.URL.Query().Get("user_id")
	var repaired *RoundState
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		round := currentRound(room)
		if round == nil {
			return errors.New("round not started")
		}
		if round.RealImageURL == "" && round.RealImagePath != "" {
			round.RealImageURL = round.RealImagePath
			round.FakeImageURL = round.FakeImagePath
			repaired = round
		}
		if round.RealImageURL == "" {
			return errors.New("round has no image data")
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errRoomNotFound) {
			writeFailure(w, http.StatusNotFound, "room not found")
			return
		}
		writeFailure(w, http.StatusConflict, err.Error())
		return
	}
	if repaired != nil {
		if err := s.persistRoundURLs(room, repaired); err != nil {
			log.Printf("round url persist failed room_id=%s error=%v", room.ID, err)
		}
		log.Printf("round urls repaired room_id=%s round=%d", room.ID, repaired.Number)
	}
	round := currentRound(room)
	url := round.RealImageURL
	if userID != "" {
		if player, ok := s.store.FindPlayerByUserID(room, userID); ok && player.ID == room.ImpostorID {
			url = round.FakeImageURL
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"round":    round.Number,
		"category": round.Category,
		"url":      url,
	})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := readJSON(r.Body, &req); err != nil || req.RoomID == "" || req.UserID == "" {
		writeFailure(w, http.StatusBadRequest, "room_id and user_id are required")
		return
	}
	var beat *Player
	wasOffline := false
	room, err := s.store.UpdateRoom(req.RoomID, func(room *Room) error {
		player, ok := s.store.FindPlayerByUserID(room, req.UserID)
		if !ok {
			return errPlayerNotFound
		}
		wasOffline = !player.Online
		player.Online = true
		player.LastSeenAt = timeNowUTC()
		beat = player
		return nil
	})
	if err != nil {
		writeFailure(w, http.StatusNotFound, err.Error())
		return
	}
	if err := s.persistHeartbeat(room, beat); err != nil {
		log.Printf("heartbeat persist failed room_id=%s error=%v", room.ID, err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
	if wasOffline {
		if woken := s.wakeRoom(room.ID); woken != nil {
			room = woken
		}
		s.broadcastRoomUpdate(room)
	}
}

func (s *Server) handleReturnToLobby(w http.ResponseWriter, r *http.Request) {
	if !s.enforceRateLimit(w, r, "return_to_lobby") {
		return
	}
	var req returnToLobbyRequest
	if err := readJSON(r.Body, &req); err != nil || req.RoomID == "" {
		writeFailure(w, http.StatusBadRequest, "room_id and user_id are required")
		return
	}
	room, err := s.store.UpdateRoom(req.RoomID, func(room *Room) error {
		caller, ok := s.store.FindPlayerByUserID(room, req.UserID)
		if !ok || caller.ID != room.HostID {
			return errNotHost
		}
		if room.Phase == phaseLobby {
			return errors.New("room already in lobby")
		}
		room.Status = statusLobby
		room.Phase = phaseLobby
		room.PhaseDeadline = time.Time{}
		room.CurrentRound = 0
		room.ImpostorID = 0
		room.Rounds = nil
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errRoomNotFound):
			writeFailure(w, http.StatusNotFound, "room not found")
		case errors.Is(err, errNotHost):
			writeFailure(w, http.StatusForbidden, err.Error())
		default:
			writeFailure(w, http.StatusConflict, err.Error())
		}
		return
	}
	s.cancelPhaseTimer(room.ID)
	if err := s.persistReturnToLobby(room); err != nil {
		log.Printf("return-to-lobby persist failed room_id=%s error=%v", room.ID, err)
		writeFailure(w, http.StatusInternalServerError, "failed to reset room")
		return
	}
	log.Printf("room returned to lobby room_id=%s", room.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"room":    s.snapshot(room),
	})
	s.broadcastRoomUpdate(room)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := make([]map[string]any, 0)
	for _, summary := range s.store.ListRoomSummaries() {
		if summary.Status != statusLobby && summary.Status != statusInProgress {
			continue
		}
		rooms = append(rooms, map[string]any{
			"room_id":   summary.ID,
			"join_code": summary.JoinCode,
			"name":      summary.Name,
			"status":    summary.Status,
			"phase":     summary.Phase,
			"players":   summary.Players,
			"online":    summary.Online,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"rooms":   rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := s.store.GetRoom(r.PathValue("id"))
	if !ok {
		writeFailure(w, http.StatusNotFound, "room not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"room":    s.snapshot(room),
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	number := 0
	if raw := r.URL.Query().Get("round"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "round must be a number")
			return
		}
		number = parsed
	}
	var payload map[string]any
	found := s.store.ReadRoom(r.PathValue("id"), func(room *Room) {
		if number > 0 {
			round := roundByNumber(room, number)
			if round == nil {
				return
			}
			payload = map[string]any{
				"success": true,
				"round":   round.Number,
				"results": roundResultsPayload(room, round),
			}
			return
		}
		payload = map[string]any{
			"success": true,
			"results": s.finalResultsPayload(room),
		}
	})
	if !found {
		writeFailure(w, http.StatusNotFound, "room not found")
		return
	}
	if payload == nil {
		writeFailure(w, http.StatusNotFound, "round not found")
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func onlinePlayers(room *Room) []Player {
	online := make([]Player, 0, len(room.Players))
	for _, player := range room.Players {
		if player.Online {
			online = append(online, player)
		}
	}
	return online
}
