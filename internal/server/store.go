package server

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	errRoomNotFound   = errors.New("room not found")
	errPlayerNotFound = errors.New("player not found")
)

// Store is the authoritative in-memory view of every active room. All
// mutations run under one mutex, so invariants like "exactly one host
// per room" cannot be raced from concurrent requests.
type Store struct {
	mu           sync.Mutex
	nextID       int
	nextPlayerID int
	rooms        map[string]*Room
	rng          *rand.Rand
}

func NewStore() *Store {
	return &Store{
		nextID:       1,
		nextPlayerID: 1,
		rooms:        make(map[string]*Room),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRoom creates a room and seats the creator as host in one step.
func (s *Store) CreateRoom(userID, playerName, roomName string) (*Room, *Player) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("room-%d", s.nextID)
	s.nextID++
	now := timeNowUTC()
	room := &Room{
		ID:           id,
		JoinCode:     s.freshJoinCode(),
		Name:         roomName,
		Status:       statusLobby,
		Phase:        phaseLobby,
		LastActiveAt: now,
		PlayerTokens: make(map[int]string),
	}
	alias := strings.TrimSpace(playerName)
	if alias == "" {
		alias = newAlias(s.rng)
	}
	player := Player{
		ID:         s.nextPlayerID,
		UserID:     userID,
		Alias:      alias,
		IsHost:     true,
		Online:     true,
		JoinedAt:   now,
		LastSeenAt: now,
	}
	s.nextPlayerID++
	room.Players = append(room.Players, player)
	room.HostID = player.ID
	room.PlayerTokens[player.ID] = uuid.NewString()
	s.rooms[id] = room
	return room, &room.Players[0]
}

func (s *Store) freshJoinCode() string {
	for {
		code := newJoinCode()
		taken := false
		for _, room := range s.rooms {
			if room.JoinCode == code {
				taken = true
				break
			}
		}
		if !taken {
			return code
		}
	}
}

func (s *Store) GetRoom(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	return room, ok
}

func (s *Store) FindRoomByJoinCode(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.rooms {
		if strings.EqualFold(room.JoinCode, code) {
			return room, true
		}
	}
	return nil, false
}

func (s *Store) UpdateRoom(id string, update func(room *Room) error) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, errRoomNotFound
	}
	if err := update(room); err != nil {
		return nil, err
	}
	room.LastActiveAt = timeNowUTC()
	return room, nil
}

func (s *Store) UpdateRoomID(room *Room, newID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.ID == newID {
		return
	}
	delete(s.rooms, room.ID)
	room.ID = newID
	s.rooms[newID] = room
}

// ReadRoom runs fn under the store lock without counting the read as
// room activity.
func (s *Store) ReadRoom(id string, fn func(room *Room)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return false
	}
	fn(room)
	return true
}

// JoinRoom admits a player by join code or room id. An existing player
// row for the same user id is an idempotent reconnect and succeeds even
// mid-game.
func (s *Store) JoinRoom(codeOrID, userID string, maxPlayers int) (*Room, *Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[codeOrID]
	if !ok {
		for _, candidate := range s.rooms {
			if strings.EqualFold(candidate.JoinCode, codeOrID) {
				room = candidate
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, nil, errRoomNotFound
	}

	now := timeNowUTC()
	for i := range room.Players {
		if room.Players[i].UserID == userID {
			room.Players[i].Online = true
			room.Players[i].LastSeenAt = now
			room.LastActiveAt = now
			return room, &room.Players[i], nil
		}
	}
	if room.Status != statusLobby {
		return nil, nil, errors.New("room not in lobby")
	}
	if maxPlayers > 0 && len(room.Players) >= maxPlayers {
		return nil, nil, errors.New("room full")
	}

	player := Player{
		ID:         s.nextPlayerID,
		UserID:     userID,
		Alias:      uniqueAlias(room, s.rng),
		Online:     true,
		JoinedAt:   now,
		LastSeenAt: now,
	}
	s.nextPlayerID++
	room.Players = append(room.Players, player)
	room.PlayerTokens[player.ID] = uuid.NewString()
	room.LastActiveAt = now
	return room, &room.Players[len(room.Players)-1], nil
}

// LeaveOutcome reports what a leave actually did, so the handler can
// persist and broadcast the right follow-up writes.
type LeaveOutcome struct {
	PlayerDBID    uint
	WasHost       bool
	NewHostID     int
	BecameDormant bool
	Deleted       bool
}

// LeaveByPlayerID removes a player row. The caller must present the
// player's own user id; a departing host hands the room to the
// earliest-joined online player, and the transfer and the removal
// happen under the same lock.
func (s *Store) LeaveByPlayerID(playerID int, userID string, force bool) (*Room, LeaveOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var outcome LeaveOutcome
	for _, room := range s.rooms {
		index := -1
		for i := range room.Players {
			if room.Players[i].ID == playerID {
				index = i
				break
			}
		}
		if index == -1 {
			continue
		}
		if userID == "" || room.Players[index].UserID != userID {
			return nil, outcome, errPlayerNotFound
		}
		outcome.PlayerDBID = room.Players[index].DBID
		outcome.WasHost = room.Players[index].IsHost

		if outcome.WasHost {
			next := -1
			for i := range room.Players {
				if i == index || !room.Players[i].Online {
					continue
				}
				if next == -1 || room.Players[i].JoinedAt.Before(room.Players[next].JoinedAt) {
					next = i
				}
			}
			if next != -1 {
				room.Players[index].IsHost = false
				room.Players[next].IsHost = true
				room.HostID = room.Players[next].ID
				outcome.NewHostID = room.Players[next].ID
			} else {
				room.HostID = 0
			}
		}

		delete(room.PlayerTokens, playerID)
		room.Players = append(room.Players[:index], room.Players[index+1:]...)
		room.LastActiveAt = timeNowUTC()

		if force {
			delete(s.rooms, room.ID)
			outcome.Deleted = true
			return room, outcome, nil
		}
		if countOnline(room.Players) == 0 && room.Status != statusCompleted {
			room.Status = statusDormant
			outcome.BecameDormant = true
		}
		return room, outcome, nil
	}
	return nil, outcome, errPlayerNotFound
}

// TransferHost moves the host flag between two players atomically.
func (s *Store) TransferHost(roomID, currentHostUserID, newHostUserID string) (*Room, *Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, nil, errRoomNotFound
	}
	var current, next *Player
	for i := range room.Players {
		if room.Players[i].UserID == currentHostUserID {
			current = &room.Players[i]
		}
		if room.Players[i].UserID == newHostUserID {
			next = &room.Players[i]
		}
	}
	if current == nil || !current.IsHost {
		return nil, nil, errors.New("not the host")
	}
	if next == nil {
		return nil, nil, errPlayerNotFound
	}
	if !next.Online {
		return nil, nil, errors.New("new host is offline")
	}
	current.IsHost = false
	next.IsHost = true
	room.HostID = next.ID
	room.LastActiveAt = timeNowUTC()
	return room, next, nil
}

func (s *Store) RemoveRoom(id string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, false
	}
	delete(s.rooms, id)
	return room, true
}

// ListRoomSummaries returns every room; callers filter by status when
// listing only active rooms.
func (s *Store) ListRoomSummaries() []RoomSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]RoomSummary, 0, len(s.rooms))
	for _, room := range s.rooms {
		list = append(list, RoomSummary{
			ID:       room.ID,
			JoinCode: room.JoinCode,
			Name:     room.Name,
			Status:   room.Status,
			Phase:    room.Phase,
			Players:  len(room.Players),
			Online:   countOnline(room.Players),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return roomSortKey(list[i].ID) < roomSortKey(list[j].ID)
	})
	return list
}

func roomSortKey(id string) int {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return 0
	}
	value, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return value
}

func (s *Store) FindPlayer(room *Room, playerID int) (*Player, bool) {
	for i := range room.Players {
		if room.Players[i].ID == playerID {
			return &room.Players[i], true
		}
	}
	return nil, false
}

func (s *Store) FindPlayerByUserID(room *Room, userID string) (*Player, bool) {
	for i := range room.Players {
		if room.Players[i].UserID == userID {
			return &room.Players[i], true
		}
	}
	return nil, false
}

func countOnline(players []Player) int {
	online := 0
	for _, player := range players {
		if player.Online {
			online++
		}
	}
	return online
}
