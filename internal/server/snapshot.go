package server

import "time"

// snapshot is the payload pushed to every subscriber after a state
// change. Image URLs and the impostor's identity stay out of it: each
// player fetches their own round image, and the impostor is revealed
// only with the final results. Room fields are written by concurrent
// requests, so the payload is built under the store lock.
func (s *Server) snapshot(room *Room) map[string]any {
	var payload map[string]any
	found := s.store.ReadRoom(room.ID, func(room *Room) {
		payload = s.snapshotLocked(room)
	})
	if !found {
		// the room was removed mid-flight; nothing writes it anymore
		payload = s.snapshotLocked(room)
	}
	return payload
}

func (s *Server) snapshotLocked(room *Room) map[string]any {
	players := make([]map[string]any, 0, len(room.Players))
	for _, player := range room.Players {
		players = append(players, map[string]any{
			"player_id": player.ID,
			"alias":     player.Alias,
			"is_host":   player.IsHost,
			"online":    player.Online,
		})
	}

	payload := map[string]any{
		"room_id":        room.ID,
		"join_code":      room.JoinCode,
		"name":           room.Name,
		"status":         room.Status,
		"phase":          room.Phase,
		"phase_deadline": formatDeadline(room.PhaseDeadline),
		"current_round":  room.CurrentRound,
		"total_rounds":   len(room.Rounds),
		"host_id":        room.HostID,
		"players":        players,
	}

	round := currentRound(room)
	if round != nil {
		payload["round"] = map[string]any{
			"number":             round.Number,
			"category":           round.Category,
			"started_at":         formatDeadline(round.StartedAt),
			"deadline_at":        formatDeadline(round.DeadlineAt),
			"captions_submitted": len(round.Captions),
			"votes_submitted":    len(round.Votes),
		}
		if room.Phase == phaseVoting || room.Phase == phaseResults {
			payload["captions"] = captionsPayload(room, round)
		}
		if room.Phase == phaseResults {
			payload["results"] = roundResultsPayload(room, round)
		}
	}
	if room.Phase == phaseFinalResults {
		payload["final_results"] = s.finalResultsPayload(room)
	}
	return payload
}

func captionsPayload(room *Room, round *RoundState) []map[string]any {
	captions := make([]map[string]any, 0, len(round.Captions))
	for _, caption := range round.Captions {
		entry := map[string]any{
			"player_id": caption.PlayerID,
			"text":      caption.Text,
		}
		if player, ok := findPlayerIn(room, caption.PlayerID); ok {
			entry["alias"] = player.Alias
		}
		captions = append(captions, entry)
	}
	return captions
}

func roundResultsPayload(room *Room, round *RoundState) map[string]any {
	scores := roundScores(room, round)
	entries := make([]map[string]any, 0, len(scores))
	for _, player := range room.Players {
		points, ok := scores[player.ID]
		if !ok {
			continue
		}
		entries = append(entries, map[string]any{
			"player_id": player.ID,
			"alias":     player.Alias,
			"points":    points,
		})
	}
	return map[string]any{
		"scores":  entries,
		"winners": roundWinners(scores),
	}
}

func (s *Server) finalResultsPayload(room *Room) map[string]any {
	standings := finalStandings(room)
	entries := make([]map[string]any, 0, len(standings))
	for _, standing := range standings {
		entries = append(entries, map[string]any{
			"player_id":  standing.PlayerID,
			"alias":      standing.Alias,
			"points":     standing.Points,
			"rounds_won": standing.RoundsWon,
			"votes":      standing.Votes,
		})
	}
	payload := map[string]any{
		"standings": entries,
	}
	if impostor, ok := findPlayerIn(room, room.ImpostorID); ok {
		payload["impostor_id"] = impostor.ID
		payload["impostor_alias"] = impostor.Alias
	}
	return payload
}

func findPlayerIn(room *Room, playerID int) (*Player, bool) {
	for i := range room.Players {
		if room.Players[i].ID == playerID {
			return &room.Players[i], true
		}
	}
	return nil, false
}

func formatDeadline(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
