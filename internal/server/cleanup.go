package server

import (
	"context"
	"log"
	"time"
)

type sweepReport struct {
	MarkedOffline int
	MarkedDormant int
	DeletedRooms  int
}

// RunSweeper periodically expires stale presence leases, parks empty
// rooms as dormant and deletes rooms nobody has touched in a long time.
func (s *Server) RunSweeper(ctx context.Context) {
	interval := time.Duration(s.cfg.SweepIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := s.sweepOnce(timeNowUTC())
			if report.MarkedOffline > 0 || report.MarkedDormant > 0 || report.DeletedRooms > 0 {
				log.Printf("sweep finished offline=%d dormant=%d deleted=%d",
					report.MarkedOffline, report.MarkedDormant, report.DeletedRooms)
			}
		}
	}
}

func (s *Server) sweepOnce(now time.Time) sweepReport {
	var report sweepReport
	heartbeatTimeout := time.Duration(s.cfg.HeartbeatTimeoutSeconds) * time.Second
	staleAfter := time.Duration(s.cfg.StaleLobbyMinutes) * time.Minute

	for _, summary := range s.store.ListRoomSummaries() {
		room, ok := s.store.GetRoom(summary.ID)
		if !ok {
			continue
		}

		// stale lobby and dormant rooms get deleted outright
		if (room.Status == statusLobby || room.Status == statusDormant) &&
			staleAfter > 0 && now.Sub(room.LastActiveAt) > staleAfter {
			removed, _ := s.store.RemoveRoom(room.ID)
			if removed != nil {
				s.cancelPhaseTimer(removed.ID)
				s.ws.CloseRoom(removed.ID)
				if err := s.deleteRoomCascade(removed.DBID, "stale"); err != nil {
					log.Printf("sweep delete failed room_id=%s error=%v", removed.ID, err)
				}
				report.DeletedRooms++
				log.Printf("room deleted room_id=%s reason=stale", removed.ID)
			}
			continue
		}

		connected := s.ws.ConnectedUsers(room.ID)
		if !anyLeaseExpired(room, connected, heartbeatTimeout, now) {
			continue
		}
		var expired []string
		becameDormant := false
		updated, err := s.store.UpdateRoom(room.ID, func(room *Room) error {
			for i := range room.Players {
				player := &room.Players[i]
				if !player.Online {
					continue
				}
				if _, live := connected[player.UserID]; live {
					continue
				}
				if heartbeatTimeout > 0 && now.Sub(player.LastSeenAt) > heartbeatTimeout {
					player.Online = false
					expired = append(expired, player.UserID)
				}
			}
			if len(expired) > 0 && countOnline(room.Players) == 0 &&
				(room.Status == statusLobby || room.Status == statusInProgress) {
				room.Status = statusDormant
				becameDormant = true
			}
			return nil
		})
		if err != nil || len(expired) == 0 {
			continue
		}
		report.MarkedOffline += len(expired)
		for _, userID := range expired {
			if err := s.persistPresence(updated, userID, false); err != nil {
				log.Printf("sweep presence persist failed room_id=%s user_id=%s error=%v", updated.ID, userID, err)
			}
		}
		if becameDormant {
			report.MarkedDormant++
			s.cancelPhaseTimer(updated.ID)
			if err := s.persistRoomStatus(updated, "room_dormant", EventPayload{Status: updated.Status, Reason: "heartbeat_timeout"}); err != nil {
				log.Printf("sweep dormant persist failed room_id=%s error=%v", updated.ID, err)
			}
			log.Printf("room dormant room_id=%s reason=heartbeat_timeout", updated.ID)
		}
		s.broadcastRoomUpdate(updated)
	}
	s.updateGauges()
	return report
}

// wakeRoom restores a dormant room once a player is back online. The
// phase survives dormancy, so the status is derived from it; a room
// mid-game gets a fresh deadline for its current phase and the timer
// rescheduled.
func (s *Server) wakeRoom(roomID string) *Room {
	now := timeNowUTC()
	woke := false
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if room.Status != statusDormant || countOnline(room.Players) == 0 {
			return nil
		}
		if room.Phase == phaseLobby {
			room.Status = statusLobby
		} else {
			room.Status = statusInProgress
			s.applyPhase(room, room.Phase, now)
		}
		woke = true
		return nil
	})
	if err != nil {
		return nil
	}
	if !woke {
		return room
	}
	if err := s.persistRoomStatus(room, "room_awake", EventPayload{Status: room.Status, Reason: "player_online"}); err != nil {
		log.Printf("wake persist failed room_id=%s error=%v", room.ID, err)
	}
	log.Printf("room awake room_id=%s status=%s phase=%s", room.ID, room.Status, room.Phase)
	if room.Status == statusInProgress {
		s.schedulePhaseTimer(room)
	}
	return room
}

// anyLeaseExpired screens a room before taking the store lock, so a
// sweep with nothing to do does not count as room activity.
func anyLeaseExpired(room *Room, connected map[string]struct{}, timeout time.Duration, now time.Time) bool {
	if timeout <= 0 {
		return false
	}
	for i := range room.Players {
		player := &room.Players[i]
		if !player.Online {
			continue
		}
		if _, live := connected[player.UserID]; live {
			continue
		}
		if now.Sub(player.LastSeenAt) > timeout {
			return true
		}
	}
	return false
}
