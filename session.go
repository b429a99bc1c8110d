package main

import (
	"sync"
	"time"
)

// Player represents a connected player.
type Player struct {
	Pseudo   string    `json:"pseudo"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joined_at"`
}

// PlaySession is a collaborative word hunt on a generated grid: players
// mark the cells they have found. Marks holds, per cell, the pseudo of
// the player who marked it ("" when unmarked).
type PlaySession struct {
	ID        string             `json:"id"`
	GridID    string             `json:"grid_id"`
	Players   map[string]*Player `json:"players"`
	Marks     [][]string         `json:"marks"`
	CreatedAt time.Time          `json:"created_at"`
	mu        sync.Mutex
}

// playerColors is the palette assigned to players in order.
var playerColors = []string{
	"#2563eb", "#dc2626", "#16a34a", "#9333ea",
	"#ea580c", "#0891b2", "#c026d3", "#ca8a04",
}

// AddPlayer adds a player to the session and returns the player. Joining
// with a known pseudo returns the existing player.
func (s *PlaySession) AddPlayer(pseudo string) *Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.Players[pseudo]; ok {
		return p
	}

	p := &Player{
		Pseudo:   pseudo,
		Color:    playerColors[len(s.Players)%len(playerColors)],
		JoinedAt: time.Now(),
	}
	s.Players[pseudo] = p
	return p
}

// RemovePlayer removes a player from the session. Their marks stay.
func (s *PlaySession) RemovePlayer(pseudo string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Players, pseudo)
}

// MarkCell records pseudo as the finder of a cell; an empty pseudo clears
// the mark. Returns false if the position is out of bounds.
func (s *PlaySession) MarkCell(row, col int, pseudo string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row < 0 || row >= len(s.Marks) || col < 0 || col >= len(s.Marks[0]) {
		return false
	}
	s.Marks[row][col] = pseudo
	return true
}

// GetMarks returns a copy of the current marks.
func (s *PlaySession) GetMarks() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([][]string, len(s.Marks))
	for i, row := range s.Marks {
		cp[i] = make([]string, len(row))
		copy(cp[i], row)
	}
	return cp
}
