package main

import (
	"crypto/rand"
	"sync"
)

// Player is a seated participant. Its identity is the websocket connection
// id: a seat is never reassigned to another connection.
type Player struct {
	ID       string `json:"id"`
	Symbol   Symbol `json:"symbol"`
	Nickname string `json:"nickname"`
}

// Spectator is attached to a room but holds no symbol and cannot move.
type Spectator struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

// Room is one isolated match with its own board, seats, spectators and chat.
type Room struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Players    []Player    `json:"players"`
	Spectators []Spectator `json:"spectators"`
	Board      Board       `json:"board"`
	Turn       Symbol      `json:"turn"`
	Winner     Outcome     `json:"winner,omitempty"`
}

const (
	statusWaiting  = "Waiting"
	statusPlaying  = "Playing"
	statusFinished = "Finished"
)

func (r *Room) status() string {
	switch {
	case r.Winner != OutcomeNone:
		return statusFinished
	case len(r.Players) == 2:
		return statusPlaying
	default:
		return statusWaiting
	}
}

func (r *Room) player(connID string) *Player {
	for i := range r.Players {
		if r.Players[i].ID == connID {
			return &r.Players[i]
		}
	}
	return nil
}

func (r *Room) participantNickname(connID string) (string, bool) {
	if p := r.player(connID); p != nil {
		return p.Nickname, true
	}
	for _, s := range r.Spectators {
		if s.ID == connID {
			return s.Nickname, true
		}
	}
	return "", false
}

// snapshot copies the room so writer goroutines can marshal it while the
// hub loop keeps mutating the stored instance.
func (r *Room) snapshot() *Room {
	c := *r
	c.Players = append([]Player(nil), r.Players...)
	c.Spectators = append([]Spectator(nil), r.Spectators...)
	return &c
}

// RoomSummary is the lobby view of a room.
type RoomSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PlayerCount    int    `json:"playerCount"`
	SpectatorCount int    `json:"spectatorCount"`
	Status         string `json:"status"`
}

// RoomStore owns every live room. Rooms are in-memory only and do not
// survive a restart. The hub loop is the sole writer; the mutex keeps
// concurrent HTTP-side reads safe.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	order []string
}

func newRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*Room),
	}
}

const roomIDLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// newRoomID generates a crypto-random room ID, retrying on the off chance
// of a collision with a live room.
func (s *RoomStore) newRoomID() string {
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = roomIDLetters[int(buf[i])%len(roomIDLetters)]
		}
		id := string(out)

		s.mu.RLock()
		_, exists := s.rooms[id]
		s.mu.RUnlock()

		if !exists {
			return id
		}
	}
}

// createRoom seats the creator as X on an empty board.
func (s *RoomStore) createRoom(name, connID, nickname string) *Room {
	room := &Room{
		ID:   s.newRoomID(),
		Name: name,
		Players: []Player{{
			ID:       connID,
			Symbol:   SymbolX,
			Nickname: nickname,
		}},
		Spectators: []Spectator{},
		Turn:       SymbolX,
	}

	s.mu.Lock()
	s.rooms[room.ID] = room
	s.order = append(s.order, room.ID)
	s.mu.Unlock()

	return room
}

func (s *RoomStore) get(id string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	return room, ok
}

// list returns lobby summaries in room creation order.
func (s *RoomStore) list() []RoomSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RoomSummary, 0, len(s.order))
	for _, id := range s.order {
		room, ok := s.rooms[id]
		if !ok {
			continue
		}
		out = append(out, RoomSummary{
			ID:             room.ID,
			Name:           room.Name,
			PlayerCount:    len(room.Players),
			SpectatorCount: len(room.Spectators),
			Status:         room.status(),
		})
	}
	return out
}

// addPlayer seats a second player. Fails if the room is missing or full.
func (s *RoomStore) addPlayer(roomID string, player Player) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok || len(room.Players) >= 2 {
		return false
	}

	room.Players = append(room.Players, player)
	return true
}

// addSpectator attaches a spectator. Re-adding the same connection is a
// no-op success.
func (s *RoomStore) addSpectator(roomID string, spectator Spectator) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return false
	}

	for _, existing := range room.Spectators {
		if existing.ID == spectator.ID {
			return true
		}
	}

	room.Spectators = append(room.Spectators, spectator)
	return true
}

// update writes back a read-modify result. The hub loop's serialization is
// what makes the read-modify-write atomic.
func (s *RoomStore) update(id string, room *Room) {
	s.mu.Lock()
	s.rooms[id] = room
	s.mu.Unlock()
}

// removePlayer frees the seat held by connID, wherever it is. A room left
// with zero players is deleted, even if spectators remain; the returned
// room is nil in that case.
func (s *RoomStore) removePlayer(connID string) (roomID string, updated *Room, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, room := range s.rooms {
		if room.player(connID) == nil {
			continue
		}

		dst := room.Players[:0]
		for _, p := range room.Players {
			if p.ID != connID {
				dst = append(dst, p)
			}
		}
		room.Players = dst

		if len(room.Players) == 0 {
			delete(s.rooms, id)
			s.dropOrder(id)
			return id, nil, true
		}
		return id, room, true
	}

	return "", nil, false
}

func (s *RoomStore) removeSpectator(roomID, connID string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return nil, false
	}

	dst := room.Spectators[:0]
	for _, spec := range room.Spectators {
		if spec.ID != connID {
			dst = append(dst, spec)
		}
	}
	room.Spectators = dst

	return room, true
}

const (
	rolePlayer    = "player"
	roleSpectator = "spectator"
)

// findParticipation resolves a connection to the single room and role it
// occupies, independent of anything the client claims.
func (s *RoomStore) findParticipation(connID string) (*Room, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, room := range s.rooms {
		if room.player(connID) != nil {
			return room, rolePlayer, true
		}
		for _, spec := range room.Spectators {
			if spec.ID == connID {
				return room, roleSpectator, true
			}
		}
	}

	return nil, "", false
}

func (s *RoomStore) dropOrder(id string) {
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
