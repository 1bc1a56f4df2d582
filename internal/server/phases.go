package server

import (
	"errors"
	"time"
)

type transitionMode int

const (
	transitionManual transitionMode = iota
	transitionAuto
)

type phaseTransition struct {
	advance func(s *Server, room *Room, mode transitionMode, at time.Time) (string, error)
}

// The phase machine is the single source of truth for where a room is
// in its game. Clients never infer phase from timestamps; they receive
// it in snapshots pushed after every transition.
var phaseTransitions = map[string]phaseTransition{
	phaseCaptioning: {
		advance: func(s *Server, room *Room, mode transitionMode, at time.Time) (string, error) {
			if currentRound(room) == nil {
				return "", errors.New("round not started")
			}
			s.applyPhase(room, phaseVoting, at)
			return phaseVoting, nil
		},
	},
	phaseVoting: {
		advance: func(s *Server, room *Room, mode transitionMode, at time.Time) (string, error) {
			if currentRound(room) == nil {
				return "", errors.New("round not started")
			}
			s.applyPhase(room, phaseResults, at)
			return phaseResults, nil
		},
	},
	phaseResults: {
		advance: func(s *Server, room *Room, mode transitionMode, at time.Time) (string, error) {
			if room.CurrentRound < len(room.Rounds) {
				room.CurrentRound++
				s.applyPhase(room, phaseCaptioning, at)
				return phaseCaptioning, nil
			}
			room.Status = statusCompleted
			s.applyPhase(room, phaseFinalResults, at)
			return phaseFinalResults, nil
		},
	},
}

func (s *Server) advanceRoom(room *Room, mode transitionMode, at time.Time) (string, error) {
	if room == nil {
		return "", errRoomNotFound
	}
	transition, ok := phaseTransitions[room.Phase]
	if !ok {
		return "", errors.New("no next phase")
	}
	return transition.advance(s, room, mode, at)
}

func (s *Server) applyPhase(room *Room, phase string, at time.Time) {
	if at.IsZero() {
		at = timeNowUTC()
	}
	room.Phase = phase
	duration := s.phaseDuration(phase)
	if duration > 0 {
		room.PhaseDeadline = at.Add(duration)
	} else {
		room.PhaseDeadline = time.Time{}
	}
	if phase == phaseCaptioning {
		if round := currentRound(room); round != nil {
			round.StartedAt = at
			round.DeadlineAt = room.PhaseDeadline
		}
	}
}

func (s *Server) phaseDuration(phase string) time.Duration {
	switch phase {
	case phaseCaptioning:
		return time.Duration(s.cfg.CaptionSeconds) * time.Second
	case phaseVoting:
		return time.Duration(s.cfg.VoteSeconds) * time.Second
	case phaseResults:
		return time.Duration(s.cfg.ResultsSeconds) * time.Second
	default:
		return 0
	}
}

func currentRound(room *Room) *RoundState {
	if room == nil || room.CurrentRound <= 0 {
		return nil
	}
	for i := range room.Rounds {
		if room.Rounds[i].Number == room.CurrentRound {
			return &room.Rounds[i]
		}
	}
	return nil
}

func roundByNumber(room *Room, number int) *RoundState {
	if room == nil || number <= 0 {
		return nil
	}
	for i := range room.Rounds {
		if room.Rounds[i].Number == number {
			return &room.Rounds[i]
		}
	}
	return nil
}

// captionsComplete reports whether every online player has captioned
// the current round; used for early advance out of captioning.
func captionsComplete(room *Room) bool {
	round := currentRound(room)
	if round == nil {
		return false
	}
	online := countOnline(room.Players)
	return online > 0 && len(round.Captions) >= online
}

// votesComplete mirrors captionsComplete for the voting phase.
func votesComplete(room *Room) bool {
	round := currentRound(room)
	if round == nil {
		return false
	}
	online := countOnline(room.Players)
	return online > 0 && len(round.Votes) >= online
}
