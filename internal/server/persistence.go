package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"odd-one-out/internal/db"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// persistRoomCreated writes the room and its host player in a single
// transaction, so a crash can never leave an orphaned room without a
// seated host.
func (s *Server) persistRoomCreated(room *Room, host *Player) error {
	if s.db == nil {
		return nil
	}
	record := db.Room{
		JoinCode:     room.JoinCode,
		Name:         room.Name,
		Status:       room.Status,
		Phase:        room.Phase,
		HostUserID:   host.UserID,
		LastActiveAt: room.LastActiveAt,
	}
	hostRecord := db.Player{
		UserID:     host.UserID,
		Alias:      host.Alias,
		IsHost:     true,
		IsOnline:   true,
		JoinedAt:   host.JoinedAt,
		LastSeenAt: host.LastSeenAt,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		hostRecord.RoomID = record.ID
		if err := tx.Create(&hostRecord).Error; err != nil {
			return err
		}
		return createEvent(tx, record.ID, nil, &hostRecord.ID, "room_created", EventPayload{
			JoinCode: room.JoinCode,
			Alias:    host.Alias,
			PlayerID: host.ID,
		})
	})
	if err != nil {
		return err
	}
	room.DBID = record.ID
	host.DBID = hostRecord.ID
	newID := fmt.Sprintf("room-%d", record.ID)
	if room.ID != newID {
		s.store.UpdateRoomID(room, newID)
	}
	return nil
}

func (s *Server) persistPlayerJoined(room *Room, player *Player) error {
	if s.db == nil {
		return nil
	}
	if player.DBID != 0 {
		return s.persistPresence(room, player.UserID, player.Online)
	}
	if err := s.ensureRoomDBID(room); err != nil {
		return err
	}
	record := db.Player{
		RoomID:     room.DBID,
		UserID:     player.UserID,
		Alias:      player.Alias,
		IsOnline:   true,
		JoinedAt:   player.JoinedAt,
		LastSeenAt: player.LastSeenAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := s.findPlayerDBID(room.DBID, player.UserID)
			if lookupErr == nil && existing != 0 {
				player.DBID = existing
				return nil
			}
		}
		return err
	}
	player.DBID = record.ID
	return s.persistEvent(room, "player_joined", EventPayload{
		Alias:    player.Alias,
		PlayerID: player.ID,
	})
}

func (s *Server) persistPresence(room *Room, userID string, online bool) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureRoomDBID(room); err != nil {
		return err
	}
	updates := map[string]any{"is_online": online}
	if online {
		updates["last_seen_at"] = timeNowUTC()
	}
	return s.db.Model(&db.Player{}).
		Where("room_id = ? AND user_id = ?", room.DBID, userID).
		Updates(updates).Error
}

func (s *Server) persistHeartbeat(room *Room, player *Player) error {
	if s.db == nil || player.DBID == 0 {
		return nil
	}
	return s.db.Model(&db.Player{}).
		Where("id = ?", player.DBID).
		Updates(map[string]any{"is_online": true, "last_seen_at": player.LastSeenAt}).Error
}

// persistStartGame writes all round rows and the room transition in one
// transaction: the room can never be flagged in_progress without its
// round data.
func (s *Server) persistStartGame(room *Room) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureRoomDBID(room); err != nil {
		return err
	}
	impostorUserID := ""
	if impostor, ok := findPlayerIn(room, room.ImpostorID); ok {
		impostorUserID = impostor.UserID
	}
	records := make([]db.Round, len(room.Rounds))
	for i := range room.Rounds {
		round := &room.Rounds[i]
		records[i] = db.Round{
			RoomID:       room.DBID,
			Number:       round.Number,
			RealImageID:  round.RealImageID,
			FakeImageID:  round.FakeImageID,
			Category:     round.Category,
			RealImageURL: round.RealImageURL,
			FakeImageURL: round.FakeImageURL,
		}
		if !round.StartedAt.IsZero() {
			startedAt := round.StartedAt
			records[i].StartedAt = &startedAt
		}
		if !round.DeadlineAt.IsZero() {
			deadlineAt := round.DeadlineAt
			records[i].DeadlineAt = &deadlineAt
		}
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for i := range records {
			if err := tx.Create(&records[i]).Error; err != nil {
				return err
			}
		}
		updates := map[string]any{
			"status":           room.Status,
			"phase":            room.Phase,
			"impostor_user_id": impostorUserID,
			"current_round":    room.CurrentRound,
			"phase_deadline":   deadlinePtr(room.PhaseDeadline),
			"last_active_at":   room.LastActiveAt,
		}
		if err := tx.Model(&db.Room{}).Where("id = ?", room.DBID).Updates(updates).Error; err != nil {
			return err
		}
		return createEvent(tx, room.DBID, &records[0].ID, nil, "game_started", EventPayload{
			Phase: room.Phase,
			Round: room.CurrentRound,
		})
	})
	if err != nil {
		return err
	}
	for i := range room.Rounds {
		room.Rounds[i].DBID = records[i].ID
	}
	return nil
}

func (s *Server) persistPhase(room *Room, eventType string, payload EventPayload) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureRoomDBID(room); err != nil {
		return err
	}
	updates := map[string]any{
		"phase":          room.Phase,
		"status":         room.Status,
		"current_round":  room.CurrentRound,
		"phase_deadline": deadlinePtr(room.PhaseDeadline),
		"last_active_at": room.LastActiveAt,
	}
	if err := s.db.Model(&db.Room{}).Where("id = ?", room.DBID).Updates(updates).Error; err != nil {
		return err
	}
	if round := currentRound(room); round != nil && round.DBID != 0 {
		roundUpdates := map[string]any{
			"started_at":  deadlinePtr(round.StartedAt),
			"deadline_at": deadlinePtr(round.DeadlineAt),
		}
		if err := s.db.Model(&db.Round{}).Where("id = ?", round.DBID).Updates(roundUpdates).Error; err != nil {
			return err
		}
	}
	return s.persistEvent(room, eventType, payload)
}

func (s *Server) persistCaption(room *Room, entry *CaptionEntry) error {
	if s.db == nil {
		return nil
	}
	round := currentRound(room)
	if round == nil || round.DBID == 0 {
		return nil
	}
	player, ok := findPlayerIn(room, entry.PlayerID)
	if !ok || player.DBID == 0 {
		return nil
	}
	record := db.Caption{
		RoundID:     round.DBID,
		PlayerID:    player.DBID,
		Text:        entry.Text,
		SubmittedAt: entry.SubmittedAt,
	}
	if err := s.db.Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	entry.DBID = record.ID
	return nil
}

func (s *Server) persistVote(room *Room, entry *VoteEntry) error {
	if s.db == nil {
		return nil
	}
	round := currentRound(room)
	if round == nil || round.DBID == 0 {
		return nil
	}
	voter, ok := findPlayerIn(room, entry.VoterID)
	if !ok || voter.DBID == 0 {
		return nil
	}
	votedFor, ok := findPlayerIn(room, entry.VotedForID)
	if !ok {
		return nil
	}
	record := db.Vote{
		RoundID:    round.DBID,
		VoterID:    voter.DBID,
		VotedForID: votedFor.DBID,
	}
	if err := s.db.Create(&record).Error; err != nil {
		// the unique index collapses a racing duplicate to a no-op
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	entry.DBID = record.ID
	return nil
}

// persistLeave applies a leave's row changes in one transaction: the
// departing player's row is removed, the host flag lands on exactly one
// successor, and the room row reflects the new host and status.
func (s *Server) persistLeave(room *Room, outcome LeaveOutcome) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureRoomDBID(room); err != nil {
		return err
	}
	hostUserID := ""
	var newHostDBID uint
	if outcome.NewHostID != 0 {
		if next, ok := findPlayerIn(room, outcome.NewHostID); ok {
			hostUserID = next.UserID
			newHostDBID = next.DBID
		}
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if outcome.PlayerDBID != 0 {
			if err := tx.Where("id = ?", outcome.PlayerDBID).Delete(&db.Player{}).Error; err != nil {
				return err
			}
		}
		if outcome.WasHost {
			if err := tx.Model(&db.Player{}).
				Where("room_id = ?", room.DBID).
				Update("is_host", false).Error; err != nil {
				return err
			}
			if newHostDBID != 0 {
				if err := tx.Model(&db.Player{}).
					Where("id = ?", newHostDBID).
					Update("is_host", true).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&db.Room{}).
				Where("id = ?", room.DBID).
				Update("host_user_id", hostUserID).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&db.Room{}).Where("id = ?", room.DBID).Updates(map[string]any{
			"status":         room.Status,
			"last_active_at": room.LastActiveAt,
		}).Error; err != nil {
			return err
		}
		return createEvent(tx, room.DBID, nil, nil, "player_left", EventPayload{
			NewHostID: outcome.NewHostID,
			Status:    room.Status,
		})
	})
}

func (s *Server) persistHostTransfer(room *Room, next *Player) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureRoomDBID(room); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&db.Player{}).
			Where("room_id = ?", room.DBID).
			Update("is_host", false).Error; err != nil {
			return err
		}
		if next.DBID != 0 {
			if err := tx.Model(&db.Player{}).
				Where("id = ?", next.DBID).
				Update("is_host", true).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&db.Room{}).
			Where("id = ?", room.DBID).
			Update("host_user_id", next.UserID).Error; err != nil {
			return err
		}
		return createEvent(tx, room.DBID, nil, nil, "host_transferred", EventPayload{
			NewHostID: next.ID,
			Alias:     next.Alias,
		})
	})
}

func (s *Server) persistRoomStatus(room *Room, eventType string, payload EventPayload) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureRoomDBID(room); err != nil {
		return err
	}
	if err := s.db.Model(&db.Room{}).Where("id = ?", room.DBID).Updates(map[string]any{
		"status":         room.Status,
		"phase":          room.Phase,
		"last_active_at": room.LastActiveAt,
	}).Error; err != nil {
		return err
	}
	return s.persistEvent(room, eventType, payload)
}

func (s *Server) persistRoundURLs(room *Room, round *RoundState) error {
	if s.db == nil || round.DBID == 0 {
		return nil
	}
	return s.db.Model(&db.Round{}).Where("id = ?", round.DBID).Updates(map[string]any{
		"real_image_url": round.RealImageURL,
		"fake_image_url": round.FakeImageURL,
	}).Error
}

// persistReturnToLobby clears a finished game's round data and resets
// the room row, all in one transaction.
func (s *Server) persistReturnToLobby(room *Room) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureRoomDBID(room); err != nil {
		return err
	}
	if room.DBID == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		roundIDs := tx.Model(&db.Round{}).Select("id").Where("room_id = ?", room.DBID)
		if err := tx.Where("round_id IN (?)", roundIDs).Delete(&db.Vote{}).Error; err != nil {
			return err
		}
		roundIDs = tx.Model(&db.Round{}).Select("id").Where("room_id = ?", room.DBID)
		if err := tx.Where("round_id IN (?)", roundIDs).Delete(&db.Caption{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", room.DBID).Delete(&db.Round{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&db.Room{}).Where("id = ?", room.DBID).Updates(map[string]any{
			"status":           room.Status,
			"phase":            room.Phase,
			"impostor_user_id": "",
			"current_round":    0,
			"phase_deadline":   nil,
			"last_active_at":   room.LastActiveAt,
		}).Error; err != nil {
			return err
		}
		return createEvent(tx, room.DBID, nil, nil, "returned_to_lobby", EventPayload{
			Status: room.Status,
		})
	})
}

// deleteRoomCascade removes a room and all of its children in one
// transaction, in child-first order.
func (s *Server) deleteRoomCascade(roomDBID uint, reason string) error {
	if s.db == nil || roomDBID == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		roundIDs := tx.Model(&db.Round{}).Select("id").Where("room_id = ?", roomDBID)
		if err := tx.Where("round_id IN (?)", roundIDs).Delete(&db.Vote{}).Error; err != nil {
			return err
		}
		roundIDs = tx.Model(&db.Round{}).Select("id").Where("room_id = ?", roomDBID)
		if err := tx.Where("round_id IN (?)", roundIDs).Delete(&db.Caption{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomDBID).Delete(&db.Round{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomDBID).Delete(&db.Event{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomDBID).Delete(&db.Player{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", roomDBID).Delete(&db.Room{}).Error
	})
}

func (s *Server) persistEvent(room *Room, eventType string, payload EventPayload) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureRoomDBID(room); err != nil {
		return err
	}
	if room.DBID == 0 {
		return errRoomNotFound
	}
	return createEvent(s.db, room.DBID, s.resolveEventRoundID(room), s.resolveEventPlayerID(room, payload), eventType, payload)
}

func createEvent(tx *gorm.DB, roomDBID uint, roundID, playerID *uint, eventType string, payload EventPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event := db.Event{
		RoomID:   roomDBID,
		RoundID:  roundID,
		PlayerID: playerID,
		Type:     eventType,
		Payload:  datatypes.JSON(data),
	}
	return tx.Create(&event).Error
}

func (s *Server) resolveEventRoundID(room *Room) *uint {
	round := currentRound(room)
	if round == nil || round.DBID == 0 {
		return nil
	}
	id := round.DBID
	return &id
}

func (s *Server) resolveEventPlayerID(room *Room, payload EventPayload) *uint {
	if payload.PlayerID <= 0 {
		return nil
	}
	player, found := findPlayerIn(room, payload.PlayerID)
	if found && player.DBID != 0 {
		value := player.DBID
		return &value
	}
	return nil
}

func (s *Server) ensureRoomDBID(room *Room) error {
	if s.db == nil || room.DBID != 0 {
		return nil
	}
	var record db.Room
	if err := s.db.Where("join_code = ?", room.JoinCode).First(&record).Error; err != nil {
		return nil
	}
	room.DBID = record.ID
	return nil
}

func (s *Server) findPlayerDBID(roomDBID uint, userID string) (uint, error) {
	var record db.Player
	if err := s.db.Where("room_id = ? AND user_id = ?", roomDBID, userID).First(&record).Error; err != nil {
		return 0, err
	}
	return record.ID, nil
}

func deadlinePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	value := t.UTC()
	return &value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
