package server

import "sort"

// Scoring: a caption earns one point per vote, and votes landed on the
// impostor's caption count double.
const impostorVoteWeight = 2

func roundScores(room *Room, round *RoundState) map[int]int {
	scores := make(map[int]int)
	if round == nil {
		return scores
	}
	for _, vote := range round.Votes {
		weight := 1
		if vote.VotedForID == room.ImpostorID {
			weight = impostorVoteWeight
		}
		scores[vote.VotedForID] += weight
	}
	return scores
}

func roundWinners(scores map[int]int) []int {
	best := 0
	for _, points := range scores {
		if points > best {
			best = points
		}
	}
	if best == 0 {
		return nil
	}
	winners := make([]int, 0, 1)
	for playerID, points := range scores {
		if points == best {
			winners = append(winners, playerID)
		}
	}
	sort.Ints(winners)
	return winners
}

type Standing struct {
	PlayerID  int
	Alias     string
	Points    int
	RoundsWon int
	Votes     int
}

// finalStandings aggregates every played round. Ties break by rounds
// won, then raw votes received, then alias for a stable order.
func finalStandings(room *Room) []Standing {
	points := make(map[int]int)
	votes := make(map[int]int)
	roundsWon := make(map[int]int)
	for i := range room.Rounds {
		round := &room.Rounds[i]
		scores := roundScores(room, round)
		for playerID, score := range scores {
			points[playerID] += score
		}
		for _, vote := range round.Votes {
			votes[vote.VotedForID]++
		}
		for _, winner := range roundWinners(scores) {
			roundsWon[winner]++
		}
	}
	standings := make([]Standing, 0, len(room.Players))
	for _, player := range room.Players {
		standings = append(standings, Standing{
			PlayerID:  player.ID,
			Alias:     player.Alias,
			Points:    points[player.ID],
			RoundsWon: roundsWon[player.ID],
			Votes:     votes[player.ID],
		})
	}
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.RoundsWon != b.RoundsWon {
			return a.RoundsWon > b.RoundsWon
		}
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		return a.Alias < b.Alias
	})
	return standings
}
