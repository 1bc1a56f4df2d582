package server

import (
	"errors"
	"log"
	"time"
)

func (s *Server) schedulePhaseTimer(room *Room) {
	duration := s.phaseDuration(room.Phase)
	if duration <= 0 {
		s.cancelPhaseTimer(room.ID)
		return
	}
	s.timersMu.Lock()
	if existing, ok := s.timers[room.ID]; ok {
		existing.Stop()
	}
	roomID := room.ID
	expected := room.Phase
	timer := time.AfterFunc(duration, func() {
		s.autoAdvancePhase(roomID, expected)
	})
	s.timers[roomID] = timer
	s.timersMu.Unlock()
}

func (s *Server) cancelPhaseTimer(roomID string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if timer, ok := s.timers[roomID]; ok {
		timer.Stop()
		delete(s.timers, roomID)
	}
}

// autoAdvancePhase fires when a phase deadline passes. The expected
// phase guards against a skip that already advanced the room.
func (s *Server) autoAdvancePhase(roomID string, expectedPhase string) {
	now := timeNowUTC()
	room, err := s.store.UpdateRoom(roomID, func(room *Room) error {
		if room.Phase != expectedPhase {
			return errors.New("phase changed")
		}
		_, err := s.advanceRoom(room, transitionAuto, now)
		return err
	})
	if err != nil {
		return
	}
	if err := s.persistPhase(room, "phase_advanced", EventPayload{Phase: room.Phase, Reason: "timeout"}); err != nil {
		log.Printf("auto-advance persist failed room_id=%s error=%v", room.ID, err)
	}
	log.Printf("room auto-advanced room_id=%s from=%s to=%s", room.ID, expectedPhase, room.Phase)
	if room.Phase == phaseCaptioning {
		s.metrics.roundsStarted.Inc()
	}
	if room.Phase == phaseFinalResults {
		s.cancelPhaseTimer(room.ID)
	} else {
		s.schedulePhaseTimer(room)
	}
	s.broadcastRoomUpdate(room)
}
