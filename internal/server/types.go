package server

import "time"

const (
	statusLobby      = "lobby"
	statusInProgress = "in_progress"
	statusCompleted  = "completed"
	statusDormant    = "dormant"
)

const (
	phaseLobby        = "lobby"
	phaseCaptioning   = "captioning"
	phaseVoting       = "voting"
	phaseResults      = "results"
	phaseFinalResults = "final_results"
)

const (
	actionSkipTimer  = "skip_timer"
	actionSkipVoting = "skip_voting"
)

type RoomSummary struct {
	ID       string
	JoinCode string
	Name     string
	Status   string
	Phase    string
	Players  int
	Online   int
}

type Room struct {
	ID            string
	DBID          uint
	JoinCode      string
	Name          string
	Status        string
	Phase         string
	PhaseDeadline time.Time
	HostID        int
	ImpostorID    int
	CurrentRound  int
	LastActiveAt  time.Time
	SkipReadyAt   time.Time
	PlayerTokens  map[int]string
	Players       []Player
	Rounds        []RoundState
}

type Player struct {
	ID         int
	DBID       uint
	UserID     string
	Alias      string
	IsHost     bool
	Online     bool
	JoinedAt   time.Time
	LastSeenAt time.Time
}

type RoundState struct {
	Number        int
	DBID          uint
	RealImageID   uint
	FakeImageID   uint
	RealImagePath string
	FakeImagePath string
	RealImageURL  string
	FakeImageURL  string
	Category      string
	StartedAt     time.Time
	DeadlineAt    time.Time
	Captions      []CaptionEntry
	Votes         []VoteEntry
}

type CaptionEntry struct {
	PlayerID    int
	Text        string
	SubmittedAt time.Time
	DBID        uint
}

type VoteEntry struct {
	VoterID    int
	VotedForID int
	DBID       uint
}

// ImageEntry mirrors one catalog row in memory.
type ImageEntry struct {
	DBID     uint
	FilePath string
	Title    string
	Category string
}
