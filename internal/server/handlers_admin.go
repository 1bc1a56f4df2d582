package server

import (
	"log"
	"net/http"
	"time"

	"odd-one-out/internal/db"
)

type adminCleanupRequest struct {
	Hours int `json:"hours"`
}

// handleAdminCleanup removes rooms whose last activity is older than the
// given number of hours, both from memory and from the database.
func (s *Server) handleAdminCleanup(w http.ResponseWriter, r *http.Request) {
	var req adminCleanupRequest
	if err := readJSON(r.Body, &req); err != nil || req.Hours <= 0 {
		writeFailure(w, http.StatusBadRequest, "hours must be a positive number")
		return
	}
	cutoff := timeNowUTC().Add(-time.Duration(req.Hours) * time.Hour)
	deleted := 0

	for _, summary := range s.store.ListRoomSummaries() {
		room, ok := s.store.GetRoom(summary.ID)
		if !ok || room.LastActiveAt.After(cutoff) {
			continue
		}
		removed, _ := s.store.RemoveRoom(room.ID)
		if removed == nil {
			continue
		}
		s.cancelPhaseTimer(removed.ID)
		s.ws.CloseRoom(removed.ID)
		if err := s.deleteRoomCascade(removed.DBID, "admin_cleanup"); err != nil {
			log.Printf("cleanup delete failed room_id=%s error=%v", removed.ID, err)
		}
		deleted++
		log.Printf("room deleted room_id=%s reason=admin_cleanup", removed.ID)
	}

	// rows left behind by an earlier process have no in-memory room;
	// sweep them straight from the database
	if s.db != nil {
		var stale []db.Room
		if err := s.db.Where("last_active_at < ?", cutoff).Find(&stale).Error; err != nil {
			log.Printf("cleanup scan failed error=%v", err)
		} else {
			for _, record := range stale {
				if err := s.deleteRoomCascade(record.ID, "admin_cleanup"); err != nil {
					log.Printf("cleanup delete failed room_db_id=%d error=%v", record.ID, err)
					continue
				}
				deleted++
			}
		}
	}

	s.updateGauges()
	log.Printf("cleanup finished hours=%d deleted=%d", req.Hours, deleted)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"deleted_rooms": deleted,
	})
}
