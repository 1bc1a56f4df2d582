package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultsRoom() *Room {
	return &Room{
		ImpostorID: 3,
		Players: []Player{
			{ID: 1, Alias: "Brave Otter"},
			{ID: 2, Alias: "Sleepy Heron"},
			{ID: 3, Alias: "Zesty Gecko"},
		},
	}
}

func TestRoundScoresImpostorVotesCountDouble(t *testing.T) {
	room := resultsRoom()
	round := &RoundState{
		Number: 1,
		Votes: []VoteEntry{
			{VoterID: 1, VotedForID: 2},
			{VoterID: 2, VotedForID: 3},
			{VoterID: 3, VotedForID: 2},
		},
	}

	scores := roundScores(room, round)
	assert.Equal(t, 2, scores[2])
	assert.Equal(t, impostorVoteWeight, scores[3])
}

func TestRoundWinnersIncludesAllTied(t *testing.T) {
	winners := roundWinners(map[int]int{1: 2, 2: 2, 3: 1})
	assert.Equal(t, []int{1, 2}, winners)
}

func TestRoundWinnersEmptyWithoutVotes(t *testing.T) {
	assert.Nil(t, roundWinners(map[int]int{}))
	assert.Nil(t, roundWinners(map[int]int{1: 0}))
}

func TestFinalStandingsAggregatesRounds(t *testing.T) {
	room := resultsRoom()
	room.Rounds = []RoundState{
		{
			Number: 1,
			Votes: []VoteEntry{
				{VoterID: 2, VotedForID: 1},
				{VoterID: 3, VotedForID: 1},
			},
		},
		{
			Number: 2,
			Votes: []VoteEntry{
				{VoterID: 1, VotedForID: 3},
				{VoterID: 2, VotedForID: 3},
			},
		},
	}

	standings := finalStandings(room)
	require.Len(t, standings, 3)

	// the impostor's doubled votes put them on top
	assert.Equal(t, 3, standings[0].PlayerID)
	assert.Equal(t, 2*impostorVoteWeight, standings[0].Points)
	assert.Equal(t, 1, standings[0].RoundsWon)
	assert.Equal(t, 2, standings[0].Votes)

	assert.Equal(t, 1, standings[1].PlayerID)
	assert.Equal(t, 2, standings[1].Points)
	assert.Equal(t, 1, standings[1].RoundsWon)
}

func TestFinalStandingsTieBreaksByRoundsWonThenVotes(t *testing.T) {
	room := &Room{
		ImpostorID: 99,
		Players: []Player{
			{ID: 1, Alias: "Brave Otter"},
			{ID: 2, Alias: "Sleepy Heron"},
		},
	}
	// both end on two points; only player 2 ever won a round, since a
	// departed player's caption outscored player 1 both times
	room.Rounds = []RoundState{
		{
			Number: 1,
			Votes: []VoteEntry{
				{VoterID: 3, VotedForID: 2},
				{VoterID: 4, VotedForID: 2},
			},
		},
		{
			Number: 2,
			Votes: []VoteEntry{
				{VoterID: 3, VotedForID: 1},
				{VoterID: 4, VotedForID: 5},
				{VoterID: 6, VotedForID: 5},
			},
		},
		{
			Number: 3,
			Votes: []VoteEntry{
				{VoterID: 4, VotedForID: 1},
				{VoterID: 3, VotedForID: 5},
				{VoterID: 6, VotedForID: 5},
			},
		},
	}

	standings := finalStandings(room)
	require.Len(t, standings, 2)
	assert.Equal(t, standings[0].Points, standings[1].Points)
	assert.Equal(t, 2, standings[0].PlayerID)
}

func TestFinalStandingsFullTieOrdersByAlias(t *testing.T) {
	room := &Room{
		ImpostorID: 99,
		Players: []Player{
			{ID: 2, Alias: "Sleepy Heron"},
			{ID: 1, Alias: "Brave Otter"},
		},
	}

	standings := finalStandings(room)
	require.Len(t, standings, 2)
	assert.Equal(t, "Brave Otter", standings[0].Alias)
}
